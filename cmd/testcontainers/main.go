package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/linkz-bio/internal/logger"
	"github.com/localnerve/linkz-bio/internal/testutil"
	"go.uber.org/zap"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the linkz-bio development containers (database and Redis) with the
environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file (DB_TYPE, DB_IMAGE, DB_APP_DATABASE,
DB_APP_USER, DB_APP_PASSWORD, DB_ROOT_PASSWORD, REDIS_IMAGE)

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	log, err := logger.New(logger.Options{Dev: true})
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if envFilename != "" {
		log.Info("loading environment variables", zap.String("file", envFilename))
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatal("failed to load environment variables", zap.Error(err))
		}
	} else {
		log.Info("no environment file specified, using current environment variables")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	containers := make(chan *testutil.TestContainers, 1)
	go func() {
		tc, err := testutil.CreateAllTestContainers(nil)
		if err != nil {
			log.Fatal("failed to create test containers", zap.Error(err))
		}
		cfg := tc.Config
		log.Info("containers ready",
			zap.String("DB_TYPE", cfg.DBType),
			zap.String("DB_HOST", cfg.DBHost),
			zap.String("DB_PORT", cfg.DBPort),
			zap.String("REDIS_URL", cfg.RedisURL))
		containers <- tc
	}()

	var tc *testutil.TestContainers
	select {
	case sig := <-sigs:
		log.Info("received signal before containers were ready", zap.Stringer("signal", sig))
		return
	case tc = <-containers:
	}

	sig := <-sigs
	log.Info("terminating test containers", zap.Stringer("signal", sig))
	tc.Terminate(nil)
}
