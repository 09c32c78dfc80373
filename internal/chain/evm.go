package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/pool/domain"
)

// fanOutLimit bounds concurrent per-pool reads.
const fanOutLimit = 8

// Backend is the subset of ethclient.Client used by EVMReader.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// EVMReader reads pools from the factory contract over JSON-RPC.
type EVMReader struct {
	backend Backend
	factory common.Address
	log     logrus.FieldLogger
}

// NewEVMReader returns a reader over backend. An empty factory address makes ListPools return no pools.
func NewEVMReader(backend Backend, factoryAddress string, log logrus.FieldLogger) (*EVMReader, error) {
	r := &EVMReader{backend: backend, log: logging.OrDiscard(log).WithField("component", "chain")}
	if factoryAddress = strings.TrimSpace(factoryAddress); factoryAddress != "" {
		if !common.IsHexAddress(factoryAddress) {
			return nil, fmt.Errorf("chain: invalid factory address %q", factoryAddress)
		}
		r.factory = common.HexToAddress(factoryAddress)
	}
	return r, nil
}

// Dial connects to rpcURL and, when chainID is non-zero, checks the endpoint serves that chain.
func Dial(ctx context.Context, rpcURL string, chainID int64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial: %w", err)
	}
	if chainID != 0 {
		got, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("chain: chain id: %w", err)
		}
		if got.Int64() != chainID {
			client.Close()
			return nil, fmt.Errorf("chain: endpoint serves chain %s, want %d", got, chainID)
		}
	}
	return client, nil
}

// ListPools reads every factory pool concurrently. Any failed read fails the whole call.
func (r *EVMReader) ListPools(ctx context.Context) ([]PoolRecord, error) {
	addresses, err := r.poolAddresses(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]PoolRecord, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, addr := range addresses {
		g.Go(func() error {
			rec, err := r.readPool(gctx, addr)
			if err != nil {
				return err
			}
			records[i] = *rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// LatestPool reads the last pool the factory registered.
func (r *EVMReader) LatestPool(ctx context.Context) (*PoolRecord, error) {
	addresses, err := r.poolAddresses(ctx)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, nil
	}
	return r.readPool(ctx, addresses[len(addresses)-1])
}

// ListMembers scans PoolJoined logs from genesis. A wallet that joined more than once
// is reported once, with the timestamp of its latest join.
func (r *EVMReader) ListMembers(ctx context.Context, address string) ([]MemberRecord, error) {
	if !common.IsHexAddress(address) {
		return nil, domain.Invalid("address", "must be a hex chain address")
	}
	logs, err := r.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{common.HexToAddress(address)},
		Topics:    [][]common.Hash{{poolJoinedTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("chain: filter PoolJoined: %w", err)
	}

	blockTimes := make(map[uint64]time.Time)
	index := make(map[string]int)
	members := []MemberRecord{}
	for _, lg := range logs {
		if len(lg.Topics) < 2 {
			continue
		}
		wallet := strings.ToLower(common.BytesToAddress(lg.Topics[1].Bytes()).Hex())
		joinedAt, ok := blockTimes[lg.BlockNumber]
		if !ok {
			header, err := r.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			if err != nil {
				return nil, fmt.Errorf("chain: block %d: %w", lg.BlockNumber, err)
			}
			joinedAt = time.Unix(int64(header.Time), 0).UTC()
			blockTimes[lg.BlockNumber] = joinedAt
		}
		if i, seen := index[wallet]; seen {
			members[i].JoinedAt = joinedAt
			continue
		}
		index[wallet] = len(members)
		members = append(members, MemberRecord{Wallet: wallet, JoinedAt: joinedAt})
	}
	return members, nil
}

func (r *EVMReader) poolAddresses(ctx context.Context) ([]common.Address, error) {
	if r.factory == (common.Address{}) {
		return nil, nil
	}
	data, err := factoryABI.Pack("allPools")
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, r.factory, data)
	if err != nil {
		return nil, err
	}
	var addresses []common.Address
	if err := factoryABI.UnpackIntoInterface(&addresses, "allPools", out); err != nil {
		return nil, fmt.Errorf("chain: decode allPools: %w", err)
	}
	return addresses, nil
}

func (r *EVMReader) readPool(ctx context.Context, addr common.Address) (*PoolRecord, error) {
	var (
		cfg          poolConfig
		status       uint8
		raised, paid *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := r.callPool(gctx, addr, "config")
		if err != nil {
			return err
		}
		decoded, err := decodePoolConfig(out)
		if err != nil {
			return err
		}
		cfg = decoded
		return nil
	})
	g.Go(func() error {
		out, err := r.callPool(gctx, addr, "status")
		if err != nil {
			return err
		}
		return poolABI.UnpackIntoInterface(&status, "status", out)
	})
	g.Go(func() error {
		out, err := r.callPool(gctx, addr, "totalRaised")
		if err != nil {
			return err
		}
		return poolABI.UnpackIntoInterface(&raised, "totalRaised", out)
	})
	g.Go(func() error {
		out, err := r.callPool(gctx, addr, "contributorsPaid")
		if err != nil {
			return err
		}
		return poolABI.UnpackIntoInterface(&paid, "contributorsPaid", out)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("chain: read pool %s: %w", addr.Hex(), err)
	}

	kind := domain.KindGoal
	if cfg.PoolType == 1 {
		kind = domain.KindImpact
	}
	contributors := int64(toFloat(paid))
	return &PoolRecord{
		ID:                    strings.ToLower(addr.Hex()),
		Address:               addr.Hex(),
		Kind:                  kind,
		Name:                  cfg.Name,
		Category:              cfg.Category,
		Target:                toFloat(cfg.TargetAmount),
		Raised:                toFloat(raised),
		ContributionPerPerson: toFloat(cfg.ContributionPerPerson),
		ContributorsPaid:      contributors,
		ContributorsTotal:     contributors,
		StartAt:               time.Unix(int64(cfg.StartAt), 0).UTC(),
		Deadline:              time.Unix(int64(cfg.Deadline), 0).UTC(),
		Status:                StatusFromCode(status),
		AdminAddress:          cfg.Admin.Hex(),
		MetadataHash:          hexutil.Encode(cfg.MetadataHash[:]),
	}, nil
}

func (r *EVMReader) callPool(ctx context.Context, addr common.Address, method string) ([]byte, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, err
	}
	return r.call(ctx, addr, data)
}

func (r *EVMReader) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", to.Hex(), err)
	}
	return out, nil
}
