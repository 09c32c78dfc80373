package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const factoryABIJSON = `[
  {"type":"function","name":"allPools","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address[]"}]}
]`

const poolABIJSON = `[
  {"type":"function","name":"config","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"poolType","type":"uint8"},
     {"name":"name","type":"string"},
     {"name":"category","type":"string"},
     {"name":"targetAmount","type":"uint256"},
     {"name":"contributionPerPerson","type":"uint256"},
     {"name":"startAt","type":"uint64"},
     {"name":"deadline","type":"uint64"},
     {"name":"admin","type":"address"},
     {"name":"metadataHash","type":"bytes32"}]}]},
  {"type":"function","name":"status","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"totalRaised","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"contributorsPaid","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"PoolJoined","anonymous":false,"inputs":[
     {"name":"account","type":"address","indexed":true},
     {"name":"timestamp","type":"uint256","indexed":false}]}
]`

var (
	factoryABI = mustParseABI(factoryABIJSON)
	poolABI    = mustParseABI(poolABIJSON)

	// poolJoinedTopic is keccak256("PoolJoined(address,uint256)").
	poolJoinedTopic = crypto.Keccak256Hash([]byte("PoolJoined(address,uint256)"))
)

// poolConfig mirrors the config() tuple.
type poolConfig struct {
	PoolType              uint8
	Name                  string
	Category              string
	TargetAmount          *big.Int
	ContributionPerPerson *big.Int
	StartAt               uint64
	Deadline              uint64
	Admin                 common.Address
	MetadataHash          [32]byte
}

// decodePoolConfig unpacks the config() return data. The output is one tuple, so it is unpacked
// as a value and converted; UnpackIntoInterface would assign the whole tuple to the first field.
func decodePoolConfig(out []byte) (poolConfig, error) {
	values, err := poolABI.Unpack("config", out)
	if err != nil {
		return poolConfig{}, err
	}
	if len(values) != 1 {
		return poolConfig{}, fmt.Errorf("chain: config returned %d values, want 1", len(values))
	}
	cfg, ok := abi.ConvertType(values[0], new(poolConfig)).(*poolConfig)
	if !ok {
		return poolConfig{}, fmt.Errorf("chain: config tuple has unexpected type %T", values[0])
	}
	return *cfg, nil
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("chain: invalid ABI: " + err.Error())
	}
	return parsed
}

// toFloat converts a uint256 amount to float64; precision loss past 2^53 is accepted.
func toFloat(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
