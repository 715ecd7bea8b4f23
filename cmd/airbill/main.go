package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/airbill/internal/config"
	"github.com/smallbiznis/airbill/internal/migration"
	"github.com/smallbiznis/airbill/internal/server"
	"github.com/smallbiznis/airbill/pkg/db"
	"github.com/smallbiznis/airbill/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
