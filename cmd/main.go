package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/web3pay/paygate"
	"github.com/web3pay/paygate/common"
)

func main() {
	app := &cli.App{
		Name: "paygate",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/paygate?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.BoolFlag{Name: "use_mongo", Value: false, Usage: "run with mongodb kv store", EnvVars: []string{"USE_MONGO"}},
			&cli.StringFlag{Name: "mongo_uri", Value: "mongodb://127.0.0.1:27017", Usage: "mongodb uri", EnvVars: []string{"MONGO_URI"}},
			&cli.StringFlag{Name: "config_override", Value: "", Usage: "network/token override json path", EnvVars: []string{"CONFIG_OVERRIDE"}},
			&cli.StringFlag{Name: "kafka_uri", Value: "127.0.0.1:9092", Usage: "kafka broker uri", EnvVars: []string{"KAFKA_URI"}},
			&cli.BoolFlag{Name: "use_kafka", Value: false, Usage: "publish order events to kafka", EnvVars: []string{"USE_KAFKA"}},

			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	s := paygate.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.Bool("use_mongo"), c.String("mongo_uri"),
		c.String("config_override"), c.String("kafka_uri"), c.Bool("use_kafka"),
	)
	s.Run(c.String("port"))

	common.NewMetricServer()

	<-signals
	s.Close()

	return nil
}
