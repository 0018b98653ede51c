// Package autoload initialises the global logger from LOG_* environment variables
// when imported.
package autoload

import (
	configx "github.com/tanpawarit/chative-intent-router/pkg/config"
	logx "github.com/tanpawarit/chative-intent-router/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
