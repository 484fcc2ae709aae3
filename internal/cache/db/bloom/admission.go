package bloom

import (
	"github.com/tiercache/tiercache/config"
)

type AdmissionControl interface {
	Record(h uint64)
	Allow(candidate, victim uint64) bool
	Estimate(h uint64) uint8
	Reset()
}

func NewAdmissionControl(cfg *config.AdmissionCfg) AdmissionControl {
	if cfg.Enabled() {
		return newShardedAdmitter(cfg)
	} else {
		return newNoOp()
	}
}
