package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/reckless-spender/internal/archive"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

func newImportCommand(a *app) *cobra.Command {
	var keepCopy bool

	cmd := &cobra.Command{
		Use:   "import <file.ofx | gs://bucket/object>",
		Short: "Import an OFX statement from disk or Cloud Storage",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithContext(cmd.Context(), a.log)
			out := printer{w: cmd.OutOrStdout()}
			source := args[0]

			var (
				filename   string
				content    []byte
				archiveURI string
			)

			if strings.HasPrefix(source, "gs://") {
				gcs, err := archive.NewGCSArchive(ctx, a.cfg.Archive.Bucket)
				if err != nil {
					return err
				}
				defer gcs.Close()

				if content, err = gcs.Fetch(ctx, source); err != nil {
					return err
				}
				filename = archive.FilenameFromURI(source)
				archiveURI = source
			} else {
				var err error
				if content, err = os.ReadFile(source); err != nil {
					return fmt.Errorf("reading %s: %w", source, err)
				}
				filename = filepath.Base(source)
			}

			if !strings.EqualFold(filepath.Ext(filename), ".ofx") {
				return fmt.Errorf("invalid file type %s: only .ofx files are accepted", filename)
			}

			if keepCopy && archiveURI == "" {
				if a.cfg.Archive.Bucket == "" {
					out.warning("no archive bucket configured, skipping archive")
				} else {
					gcs, err := archive.NewGCSArchive(ctx, a.cfg.Archive.Bucket)
					if err != nil {
						return err
					}
					defer gcs.Close()
					if archiveURI, err = gcs.Store(ctx, filename, content); err != nil {
						out.warning("archive failed: %v", err)
					}
				}
			}

			res, err := pipeline.NewImporter(a.store, a.store, a.log).Import(ctx, filename, content)
			if err != nil {
				if msg, ok := pipeline.ParseFailure(err); ok {
					return fmt.Errorf("%s", msg)
				}
				return err
			}

			printSummary(out, res, archiveURI)
			if res.Partial() {
				return fmt.Errorf("import of %s was only partly stored", filename)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&keepCopy, "archive", false, "also store the file in the configured GCS bucket")
	return cmd
}

func printSummary(out printer, res *pipeline.Result, archiveURI string) {
	sum := res.Summary()
	sum.ArchiveURI = archiveURI

	out.header("Import " + sum.Filename)
	if res.Partial() {
		out.warning("%s", sum.Message)
	} else {
		out.success("%s", sum.Message)
	}
	out.info("accounts created:       %d", sum.AccountsProcessed)
	out.info("accounts matched:       %d", sum.AccountsMatched)
	for _, name := range res.SkippedAccounts {
		out.warning("account skipped: %s", name)
	}
	out.info("transactions collected: %d", sum.TransactionsCollected)
	out.info("duplicates skipped:     %d", sum.DuplicatesSkipped)
	out.info("transactions stored:    %d", sum.TransactionsPersisted)
	if sum.ArchiveURI != "" {
		out.info("archived at:            %s", sum.ArchiveURI)
	}
}
