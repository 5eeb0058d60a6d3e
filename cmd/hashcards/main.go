// Command hashcards drills markdown flashcards in the browser.
//
//	hashcards [drill]            study the cards due today
//	hashcards check              parse and validate the collection
//	hashcards stats              print collection statistics
//	hashcards orphans [--delete] list schedule rows with no matching card
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/hashcards/internal/collection"
	"github.com/conorfennell/hashcards/internal/config"
	"github.com/conorfennell/hashcards/internal/domain"
	"github.com/conorfennell/hashcards/internal/drill"
	"github.com/conorfennell/hashcards/internal/gitsource"
	"github.com/conorfennell/hashcards/internal/storage"
	"github.com/conorfennell/hashcards/internal/web"
)

func main() {
	command := "drill"
	args := os.Args[1:]
	if len(args) > 0 && !isFlag(args[0]) {
		command, args = args[0], args[1:]
	}

	flags := config.Flags(command)
	var deleteOrphans bool
	if command == "orphans" {
		flags.BoolVar(&deleteOrphans, "delete", false, "delete the orphaned rows")
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fatal("parsing flags", err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("loading configuration", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "drill":
		err = runDrill(ctx, cfg)
	case "check":
		err = runCheck(ctx, cfg)
	case "stats":
		err = runStats(ctx, cfg)
	case "orphans":
		err = runOrphans(ctx, cfg, deleteOrphans)
	default:
		fatal("unknown command", fmt.Errorf("%q (expected drill, check, stats or orphans)", command))
	}
	if err != nil {
		fatal(command, err)
	}
}

func isFlag(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "hashcards: %s: %v\n", msg, err)
	os.Exit(1)
}

// load syncs the configured git sources, opens the database, and loads
// the collection. Parse errors are logged but do not block a drill.
func load(ctx context.Context, cfg *config.Config) (*storage.DB, *collection.Collection, error) {
	if _, err := gitsource.SyncAll(ctx, cfg.Dir, cfg.Sources); err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.DB, err)
	}

	col, parseErrs, err := collection.Load(ctx, cfg.Dir, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	for _, parseErr := range parseErrs {
		slog.Warn("deck file skipped", "error", parseErr)
	}
	return db, col, nil
}

func runDrill(ctx context.Context, cfg *config.Config) error {
	db, col, err := load(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	due := col.Due(domain.Today())
	if len(due) == 0 {
		fmt.Println("No cards due today.")
		return nil
	}

	session := drill.NewSession(db, due, col.States())
	srv, err := web.NewServer(session, col)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.Listen, Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("drill started", "cards", len(due), "url", "http://"+cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-srv.Done():
		// The session has been committed; give the summary page a moment.
		time.Sleep(500 * time.Millisecond)
	case <-ctx.Done():
		slog.Info("interrupted, saving the session")
		if err := session.Finish(context.Background()); err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runCheck(ctx context.Context, cfg *config.Config) error {
	db, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", cfg.DB, err)
	}
	defer db.Close()

	col, parseErrs, err := collection.Load(ctx, cfg.Dir, db)
	if err != nil {
		return err
	}
	for _, parseErr := range parseErrs {
		fmt.Fprintln(os.Stderr, parseErr)
	}
	if len(parseErrs) > 0 {
		return fmt.Errorf("%d deck file(s) failed to parse", len(parseErrs))
	}
	fmt.Printf("OK: %d cards\n", len(col.All()))
	return nil
}

func runStats(ctx context.Context, cfg *config.Config) error {
	db, col, err := load(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.CollectionStats(ctx, domain.Today())
	if err != nil {
		return err
	}

	fmt.Printf("cards      %d\n", len(col.All()))
	fmt.Printf("new        %d\n", len(col.All())-stats.Reviewed)
	fmt.Printf("due today  %d\n", len(col.Due(domain.Today())))
	fmt.Printf("sessions   %d\n", stats.Sessions)
	fmt.Printf("reviews    %d\n", stats.Reviews)
	return nil
}

// runOrphans lists cards persisted in the database whose hash no longer
// appears in the decks, which happens whenever a card's text is edited.
func runOrphans(ctx context.Context, cfg *config.Config, remove bool) error {
	db, col, err := load(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	hashes, err := db.CardHashes(ctx)
	if err != nil {
		return err
	}

	var orphans []string
	for _, hash := range hashes {
		if _, ok := col.ByHash(hash); !ok {
			orphans = append(orphans, hash)
		}
	}
	if len(orphans) == 0 {
		fmt.Println("No orphaned cards.")
		return nil
	}

	for _, hash := range orphans {
		if remove {
			if err := db.DeleteCard(ctx, hash); err != nil {
				return fmt.Errorf("deleting %s: %w", hash, err)
			}
			fmt.Printf("deleted %s\n", hash)
		} else {
			fmt.Println(hash)
		}
	}
	if !remove {
		fmt.Printf("%d orphaned card(s); rerun with --delete to remove them\n", len(orphans))
	}
	return nil
}
