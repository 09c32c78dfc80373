package chain

// NewTestBackend returns a Backend whose factory lists a goal pool ("Rent", active) at TestPoolA
// and a cancelled goal pool ("Trip") at TestPoolB.
func NewTestBackend() Backend { return newFakeBackend() }

var (
	TestFactoryAddress = factoryAddr
	TestPoolA          = poolA
	TestPoolB          = poolB
)
