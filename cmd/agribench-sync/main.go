// agribench-sync lists, pushes or removes one page's rows for a farm against
// the agribenchmark backend.
//
// Usage:
//
//	AGRIBENCH_API_URL=... go run ./cmd/agribench-sync --page landuse --farm DE_2024_<uuid>
//	go run ./cmd/agribench-sync --page landuse --farm ... --push rows.json --dry-run=false --confirm PUSH
//	go run ./cmd/agribench-sync --page landuse --farm ... --remove <row id>
//	go run ./cmd/agribench-sync --new-farm DE --year 2024
//	API_SECRET=... go run ./cmd/agribench-sync --issue-token ci
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/farmcache"
	"github.com/agribenchmark/farmsync/pages"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/restclient"
	"github.com/agribenchmark/farmsync/rowsync"
	"github.com/agribenchmark/farmsync/session"
	"github.com/agribenchmark/farmsync/upsert"
	"github.com/agribenchmark/farmsync/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	pageName := flag.String("page", "", "Page to sync: "+strings.Join(pages.Names(), ", "))
	farmId := flag.String("farm", "", "Farm id (CC_YYYY_<uuid>)")
	pushFile := flag.String("push", "", "JSON file with an array of rows to submit")
	removeId := flag.String("remove", "", "Row id to delete")
	dryRun := flag.Bool("dry-run", true, "With --push, print the reconciled rows only (no writes)")
	confirm := flag.String("confirm", "", "Type PUSH to proceed when dry-run=false")
	outFile := flag.String("out", "", "Write rows to this file instead of stdout")
	newFarm := flag.String("new-farm", "", "Print a fresh farm id for this country code and exit")
	year := flag.Int("year", time.Now().Year(), "Year for --new-farm")
	issueToken := flag.String("issue-token", "", "Print an API token for this subject (signed with API_SECRET) and exit")
	flag.Parse()

	if *issueToken != "" {
		token, err := utils.JwtGenerate(strings.TrimSpace(*issueToken), "editor")
		if err != nil {
			fail("issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if *newFarm != "" {
		id, err := utils.NewFarmId(strings.ToUpper(strings.TrimSpace(*newFarm)), *year)
		if err != nil {
			fail("new farm id: %v", err)
		}
		fmt.Println(id)
		return
	}

	page, ok := pages.Lookup(strings.TrimSpace(*pageName))
	if !ok {
		fail("--page must be one of: %s", strings.Join(pages.Names(), ", "))
	}
	selection := session.NewSelection()
	if err := selection.Select(strings.TrimSpace(*farmId)); err != nil {
		fail("--farm: %v", err)
	}
	if *pushFile != "" && !*dryRun && strings.TrimSpace(*confirm) != "PUSH" {
		fail("set --confirm=PUSH to proceed")
	}

	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}
	logger := config.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := restclient.NewFromConfig(cfg)
	if err != nil {
		fail("client: %v", err)
	}
	syncer := rowsync.NewSyncer(page,
		farmcache.New(client, cacheOptions(ctx, cfg, logger)...),
		upsert.NewFromEnv(client),
		client,
		rowsync.WithLogger(logger),
		rowsync.WithNotifier(rowsync.NotifierFunc(func(o rowsync.Outcome) {
			if o.Err != nil {
				fmt.Fprintf(os.Stderr, "%s %s failed: %v\n", o.Action, o.Page, o.Err)
				return
			}
			fmt.Fprintf(os.Stderr, "%s %s: %d rows ok\n", o.Action, o.Page, o.Rows)
		})),
	)

	scope := selection.FarmId()
	state, previous, err := syncer.Load(ctx, scope)
	if err != nil {
		fail("load: %v", err)
	}

	switch {
	case *removeId != "":
		if _, err := syncer.RemoveRow(ctx, state, strings.TrimSpace(*removeId)); err != nil {
			os.Exit(1)
		}
	case *pushFile != "":
		rows, err := readPushRows(*pushFile)
		if err != nil {
			fail("read %s: %v", *pushFile, err)
		}
		state = page.ToFormDefaults(rows, scope)
		if *dryRun {
			output(*outFile, rowsync.Reconcile(page.ToPersistedRows(state), previous))
			return
		}
		committed, err := syncer.Submit(ctx, state, previous)
		if err != nil {
			os.Exit(1)
		}
		output(*outFile, committed)
	default:
		if len(previous) == 0 {
			fmt.Fprintln(os.Stderr, "no rows stored yet; showing defaults")
		}
		output(*outFile, page.ToPersistedRows(state))
	}
}

var errNoPushRows = errors.New("file holds no rows")

// readPushRows loads the rows to submit. An empty array is refused; it would
// otherwise push the page's blank default rows.
func readPushRows(path string) ([]record.Record, error) {
	rows, err := utils.ReadJSONFile[[]record.Record](path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNoPushRows
	}
	return rows, nil
}

// cacheOptions backs the cache with Redis snapshots when REDIS_ADDRESS is set.
func cacheOptions(ctx context.Context, cfg *config.Config, logger *logrus.Logger) []farmcache.Option {
	opts := []farmcache.Option{farmcache.WithLogger(logger)}
	if cfg.RedisAddress == "" {
		return opts
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := config.ConnectRedisWithRetry(connectCtx, cfg.RedisAddress); err != nil {
		logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis unavailable; running without snapshots: " + err.Error())
		return opts
	}
	return append(opts, farmcache.WithStore(farmcache.NewRedisStore(config.GetRedisDB(), cfg.SnapshotLifespan)))
}

func output(path string, rows []record.Record) {
	if path != "" {
		if err := utils.WriteJSONFile(path, rows); err != nil {
			fail("write %s: %v", path, err)
		}
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		fail("encode: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
