package aave

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

const wordSize = 32

var (
	selGetReserveData = selector("getReserveData(address)")
	selTotalSupply    = selector("totalSupply()")
	selDecimals       = selector("decimals()")
)

// Word offsets in the getReserveData return tuple.
const (
	liquidityRateWord = 2
	aTokenWord        = 8
)

func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// encodeAddressCall packs a call taking a single address argument.
func encodeAddressCall(sel []byte, address string) ([]byte, error) {
	addr, err := decodeAddress(address)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 4+wordSize)
	copy(data, sel)
	copy(data[4+wordSize-len(addr):], addr)
	return data, nil
}

func decodeAddress(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil || len(b) != 20 {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return b, nil
}

func word(data []byte, i int) ([]byte, error) {
	start := i * wordSize
	if len(data) < start+wordSize {
		return nil, fmt.Errorf("return data too short: %d bytes, need word %d", len(data), i)
	}
	return data[start : start+wordSize], nil
}

func wordUint(data []byte, i int) (*big.Int, error) {
	w, err := word(data, i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w), nil
}

func wordAddress(data []byte, i int) (string, error) {
	w, err := word(data, i)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(w[12:]), nil
}
