// testcontainers.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/localnerve/linkz-bio/data"
	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Container defaults, overridable from the environment
const (
	defaultPostgresImage = "postgres:17-alpine"
	defaultMySQLImage    = "mysql:8.4"
	defaultRedisImage    = "redis:7-alpine"
)

// TestContainers is a database plus Redis on a private network
type TestContainers struct {
	Network        *testcontainers.DockerNetwork
	DBContainer    testcontainers.Container
	RedisContainer testcontainers.Container

	// Config points at the mapped host ports
	Config *config.Config
}

// Terminate stops every container and removes the network
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.RedisContainer != nil {
		if err := tc.RedisContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Redis: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate database: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateAllTestContainers starts the database selected by DB_TYPE (postgres
// or mysql) and Redis, then applies the profiles DDL. With a nil t, failures
// exit the process, which is how the standalone dev runner uses it.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	tc.Network = nw

	dbType := getEnv("DB_TYPE", "postgres")
	cfg := &config.Config{
		DBType:               dbType,
		DBAppDatabase:        getEnv("DB_APP_DATABASE", "linkz"),
		DBAppUser:            getEnv("DB_APP_USER", "linkz"),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", "linkz-password"),
		DBAppConnectionLimit: 5,
		AuthMode:             config.AuthModeJWT,
		AuthJWTSecret:        JWTSecret,
		CacheTTL:             time.Minute,
	}

	dbPort, dbImage, dataDir := "5432/tcp", getEnv("DB_IMAGE", defaultPostgresImage), "/var/lib/postgresql/data"
	waitFor := wait.ForLog("database system is ready to accept connections").WithOccurrence(2)
	if dbType == "mysql" || dbType == "mariadb" {
		dbPort, dbImage, dataDir = "3306/tcp", getEnv("DB_IMAGE", defaultMySQLImage), "/var/lib/mysql"
		waitFor = wait.ForLog("ready for connections").WithOccurrence(2)
	}
	tcpDBPort := nat.Port(dbPort)

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage,
			ExposedPorts: []string{string(tcpDBPort)},
			Env:          getDBInitEnvMap(cfg),
			WaitingFor: wait.ForAll(
				waitFor,
				wait.ForListeningPort(tcpDBPort),
			).WithStartupTimeout(90 * time.Second),
			Networks: []string{nw.Name},
			NetworkAliases: map[string][]string{
				nw.Name: {"db"},
			},
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				// Throwaway data directory
				hostConfig.Tmpfs = map[string]string{dataDir: "rw"}
			},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to start database")
	}
	tc.DBContainer = dbContainer

	cfg.DBHost, _ = dbContainer.Host(ctx)
	mappedDBPort, err := dbContainer.MappedPort(ctx, tcpDBPort)
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to map database port")
	}
	cfg.DBPort = mappedDBPort.Port()

	if err := performDBInit(cfg); err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to initialize database")
	}

	tcpRedisPort := nat.Port("6379/tcp")
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("REDIS_IMAGE", defaultRedisImage),
			ExposedPorts: []string{string(tcpRedisPort)},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			Networks:     []string{nw.Name},
			NetworkAliases: map[string][]string{
				nw.Name: {"redis"},
			},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to start Redis")
	}
	tc.RedisContainer = redisContainer

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, err := redisContainer.MappedPort(ctx, tcpRedisPort)
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to map Redis port")
	}
	cfg.RedisURL = fmt.Sprintf("redis://%s:%s/0", redisHost, redisPort.Port())

	tc.Config = cfg
	logMessage(t, "DB_TYPE=%s DB_HOST=%s DB_PORT=%s", cfg.DBType, cfg.DBHost, cfg.DBPort)
	logMessage(t, "REDIS_URL=%s", cfg.RedisURL)
	return tc, nil
}

func getDBInitEnvMap(cfg *config.Config) map[string]string {
	switch cfg.DBType {
	case "mysql", "mariadb":
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": getEnv("DB_ROOT_PASSWORD", "root-password"),
			"MYSQL_DATABASE":      cfg.DBAppDatabase,
			"MYSQL_USER":          cfg.DBAppUser,
			"MYSQL_PASSWORD":      cfg.DBAppPassword,
		}
	}
	return map[string]string{
		"POSTGRES_PASSWORD": cfg.DBAppPassword,
		"POSTGRES_USER":     cfg.DBAppUser,
		"POSTGRES_DB":       cfg.DBAppDatabase,
	}
}

// performDBInit applies the profiles DDL so the schema matches production
// before the service auto-migrates.
func performDBInit(cfg *config.Config) error {
	ddl := data.InitdbProfiles(cfg.DBType)
	if ddl == "" {
		return nil
	}

	switch cfg.DBType {
	case "mysql", "mariadb":
		dsn := mysqldriver.Config{
			User:                 cfg.DBAppUser,
			Passwd:               cfg.DBAppPassword,
			Net:                  "tcp",
			Addr:                 cfg.DBHost + ":" + cfg.DBPort,
			DBName:               cfg.DBAppDatabase,
			AllowNativePasswords: true,
		}
		db, err := sql.Open("mysql", dsn.FormatDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := waitForPing(db); err != nil {
			return err
		}
		return executeSQL(db.Exec, ddl)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBAppUser, cfg.DBAppPassword, cfg.DBAppDatabase, cfg.DBPort)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}
	db, err := gdb.DB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := waitForPing(db); err != nil {
		return err
	}
	return executeSQL(db.Exec, ddl)
}

func waitForPing(db *sql.DB) error {
	var err error
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("database not ready after 30 seconds: %w", err)
}

// executeSQL runs a script statement by statement, dropping -- comments
func executeSQL(exec func(string, ...any) (sql.Result, error), script string) error {
	var lines []string
	for _, l := range strings.Split(script, "\n") {
		if i := strings.Index(l, "--"); i >= 0 {
			l = l[:i]
		}
		lines = append(lines, l)
	}

	for _, q := range strings.Split(strings.Join(lines, "\n"), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := exec(q); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), q)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
