package adapters

import (
	"github.com/google/wire"
	"github.com/trebuchet-org/treb-roles/internal/adapters/blockchain"
	internalconfig "github.com/trebuchet-org/treb-roles/internal/adapters/config"
	"github.com/trebuchet-org/treb-roles/internal/adapters/fs"
	"github.com/trebuchet-org/treb-roles/internal/adapters/interactive"
	"github.com/trebuchet-org/treb-roles/internal/adapters/progress"
	"github.com/trebuchet-org/treb-roles/internal/adapters/repository/addressbook"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	fs.NewReportStoreAdapter,
	wire.Bind(new(usecase.ReportStore), new(*fs.ReportStoreAdapter)),

	addressbook.NewFileRepository,
	wire.Bind(new(usecase.ContractAddressResolver), new(*addressbook.FileRepository)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewConfirmAdapter,
	progress.ProvideProgressSink,
)

// ConfigSet provides configuration-based implementations
var ConfigSet = wire.NewSet(
	internalconfig.ProvideNetworkResolver,
	internalconfig.NewNetworkResolverAdapter,
	wire.Bind(new(usecase.NetworkResolver), new(*internalconfig.NetworkResolverAdapter)),
)

// BlockchainSet provides blockchain-based implementations
var BlockchainSet = wire.NewSet(
	blockchain.NewEthConnector,
	wire.Bind(new(usecase.ChainConnector), new(*blockchain.EthConnector)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	InteractiveSet,
	ConfigSet,
	BlockchainSet,
)
