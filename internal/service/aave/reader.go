package aave

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	"YieldScope/internal/service/cache"
	xlogger "YieldScope/pkg/logger"
)

const (
	Protocol         = "Aave"
	marketIDPrefix   = "aave-v3-"
	rayDecimals      = 27
	defaultMetaTTL   = time.Hour
	maxTokenDecimals = 77
)

var hundred = decimal.NewFromInt(100)

// Caller performs eth_call against a node.
type Caller interface {
	CallContract(ctx context.Context, to string, data []byte, block uint64) ([]byte, error)
}

// Reader turns Aave v3 pool state at a block into market snapshots.
type Reader struct {
	chain    Chain
	marketID string
	caller   Caller
	decimals *cache.TTLCache[uint8]
	metaTTL  time.Duration
	logger   *xlogger.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMetadataTTL bounds how long token decimals are reused between blocks.
func WithMetadataTTL(ttl time.Duration) ReaderOption {
	return func(r *Reader) { r.metaTTL = ttl }
}

// NewReader returns a reader of the Aave v3 pool on chain, calling contracts through caller.
func NewReader(chain Chain, caller Caller, logger *xlogger.Logger, opts ...ReaderOption) *Reader {
	r := &Reader{
		chain:    chain,
		marketID: MarketID(chain.Name),
		caller:   caller,
		decimals: cache.NewTTLCache[uint8](),
		metaTTL:  defaultMetaTTL,
		logger:   logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// MarketID is the lending-market identifier used for a chain.
func MarketID(chain string) string {
	return marketIDPrefix + strings.ToLower(chain)
}

func (r *Reader) Chain() string { return r.chain.Name }

// Fetch reads every configured reserve at block. Reserves that fail are
// skipped; an error is returned only when none could be read.
func (r *Reader) Fetch(ctx context.Context, block *models.Block) ([]*models.Snapshot, error) {
	if block == nil {
		return nil, errors.New("nil block")
	}
	out := make([]*models.Snapshot, 0, len(r.chain.Assets))
	var errs []error
	for _, a := range r.chain.Assets {
		s, err := r.fetchReserve(ctx, a, block)
		if err != nil {
			r.logger.Warn("read reserve",
				xlogger.String("chain", r.chain.Name),
				xlogger.String("asset", a.Symbol),
				xlogger.Uint64("block", block.Number),
				xlogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", a.Symbol, err))
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (r *Reader) fetchReserve(ctx context.Context, a Asset, block *models.Block) (*models.Snapshot, error) {
	call, err := encodeAddressCall(selGetReserveData, a.Address)
	if err != nil {
		return nil, err
	}
	data, err := r.caller.CallContract(ctx, r.chain.PoolAddress, call, block.Number)
	if err != nil {
		return nil, fmt.Errorf("getReserveData: %w", err)
	}
	rate, err := wordUint(data, liquidityRateWord)
	if err != nil {
		return nil, fmt.Errorf("getReserveData: %w", err)
	}
	aToken, err := wordAddress(data, aTokenWord)
	if err != nil {
		return nil, fmt.Errorf("getReserveData: %w", err)
	}

	data, err = r.caller.CallContract(ctx, aToken, selTotalSupply, block.Number)
	if err != nil {
		return nil, fmt.Errorf("totalSupply: %w", err)
	}
	supply, err := wordUint(data, 0)
	if err != nil {
		return nil, fmt.Errorf("totalSupply: %w", err)
	}

	dec, err := r.tokenDecimals(ctx, aToken, block.Number)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		MarketID:  r.marketID,
		Protocol:  Protocol,
		Chain:     r.chain.Name,
		Asset:     a.Symbol,
		RawYield:  RayToPercent(rate),
		Liquidity: ScaleAmount(supply, dec),
		Timestamp: block.Timestamp,
	}, nil
}

func (r *Reader) tokenDecimals(ctx context.Context, token string, block uint64) (uint8, error) {
	if d, ok := r.decimals.Get(token); ok {
		return d, nil
	}
	data, err := r.caller.CallContract(ctx, token, selDecimals, block)
	if err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	v, err := wordUint(data, 0)
	if err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	if !v.IsUint64() || v.Uint64() > maxTokenDecimals {
		return 0, fmt.Errorf("decimals: implausible value %s", v)
	}
	d := uint8(v.Uint64())
	r.decimals.Set(token, d, r.metaTTL)
	return d, nil
}

// RayToPercent converts a ray-scaled (1e27) annual rate into percent.
func RayToPercent(rate *big.Int) float64 {
	if rate == nil || rate.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromBigInt(rate, -rayDecimals).Mul(hundred).InexactFloat64()
}

// ScaleAmount converts a raw token amount into whole units.
func ScaleAmount(amount *big.Int, decimals uint8) float64 {
	if amount == nil || amount.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).InexactFloat64()
}

var _ drepo.SnapshotSource = (*Reader)(nil)
