// main.go
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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/localnerve/linkz-bio/internal/database"
	"github.com/localnerve/linkz-bio/internal/logger"
	"github.com/localnerve/linkz-bio/internal/services"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Options{Level: "warn", Dev: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return 1
	}
	defer database.Close(db)

	rdb, err := services.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", zap.Error(err))
		return 1
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Perform health check
	result := services.HealthCheck(ctx, cfg, db, rdb, log)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Error("failed to marshal health check result", zap.Error(err))
		return 1
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if !result.Healthy() {
		return 1
	}
	return 0
}
