package models

// Block is the part of a chain header the indexer needs.
type Block struct {
	Chain     string
	Number    uint64
	Timestamp int64
}
