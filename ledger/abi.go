package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names bound by ContractClient.
const (
	methodRegistrationID   = "getRegistrationId"
	methodActivationStatus = "getActivationStatus"
	methodProfileComplete  = "getProfileCompletion"
	methodActivationLevel  = "getActivationLevel"
)

// SpeedTrackABI is the read-only subset of the Speed Track contract ABI.
const SpeedTrackABI = `[
	{"inputs":[{"name":"user","type":"address"}],"name":"getRegistrationId","outputs":[{"name":"id","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"user","type":"address"}],"name":"getActivationStatus","outputs":[{"name":"activated","type":"bool"},{"name":"level","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"user","type":"address"}],"name":"getProfileCompletion","outputs":[{"name":"complete","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"level","type":"uint8"}],"name":"getActivationLevel","outputs":[{"name":"fee","type":"uint256"},{"name":"maxInvestment","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

func parseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(SpeedTrackABI))
}
