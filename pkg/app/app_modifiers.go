package app

import (
	"github.com/solguard/solguard-api/internal/shared/config"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

type Modifier func(a *App)

func SetConfig(cfg config.Config) Modifier {
	return func(a *App) {
		a.cfg = cfg
	}
}

func SetLog(log logutil.Log) Modifier {
	return func(a *App) {
		a.log = log
	}
}

func SetStores(stores *store.Stores) Modifier {
	return func(a *App) {
		a.stores = stores
	}
}
