// Package cli implements menuctl, the operator command line for the menu
// service: inspect what the sheet currently yields and push it to S3.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/JonMunkholm/bakery/internal/config"
	"github.com/JonMunkholm/bakery/internal/logging"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/JonMunkholm/bakery/internal/publish"
	"github.com/JonMunkholm/bakery/internal/sheets"
	"github.com/JonMunkholm/bakery/internal/web"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// S3Factory builds the client used by the publish command.
type S3Factory func(ctx context.Context, region string) (publish.PutObjectAPI, error)

// Deps are the external services the commands use.
// A nil S3 uses publish.NewS3Client.
type Deps struct {
	S3 S3Factory
}

type rootOptions struct {
	envFile  string
	sheetID  string
	logLevel string
	cfg      *config.Config
}

// NewRootCommand returns the menuctl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	if deps.S3 == nil {
		deps.S3 = func(ctx context.Context, region string) (publish.PutObjectAPI, error) {
			return publish.NewS3Client(ctx, region)
		}
	}
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "menuctl",
		Short:         "Inspect and publish the bakery menu",
		Long:          `menuctl reads the published menu sheet with the same configuration as the menu server and prints or publishes the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.sheetID, "sheet-id", "", "spreadsheet id (overrides SHEET_ID)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newFetchCommand(opts),
		newCategoriesCommand(opts),
		newPublishCommand(opts, deps),
	)
	return root
}

// load reads the dotenv file and the configuration.
func (o *rootOptions) load(stderr io.Writer) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	if o.sheetID != "" {
		os.Setenv("SHEET_ID", o.sheetID)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o.cfg = cfg

	slog.SetDefault(logging.New(stderr, o.logLevel, "text"))
	return nil
}

// fetchCSV downloads the raw sheet export.
func (o *rootOptions) fetchCSV(ctx context.Context) (string, error) {
	c := o.cfg.Sheet
	client, err := sheets.NewClient(sheets.Config{
		BaseURL:   c.BaseURL,
		SheetID:   c.ID,
		SheetName: c.Name,
		Range:     c.Range,
		MaxBytes:  c.MaxBytes,
		Timeout:   c.FetchTimeout,
	}, nil)
	if err != nil {
		return "", err
	}
	return client.FetchCSV(ctx)
}

// fetchMenu downloads and maps the sheet.
func (o *rootOptions) fetchMenu(ctx context.Context) ([]menu.MenuItem, []menu.Category, error) {
	text, err := o.fetchCSV(ctx)
	if err != nil {
		return nil, nil, err
	}
	items := menu.MapRows(menu.ParseCSV(text))
	return items, menu.ExtractCategories(items), nil
}

func newFetchCommand(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print the menu items the sheet currently yields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				text, err := opts.fetchCSV(cmd.Context())
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			}
			items, _, err := opts.fetchMenu(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the CSV export instead of mapped items")
	return cmd
}

func newCategoriesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the categories derived from the sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, categories, err := opts.fetchMenu(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), categories)
		},
	}
}

func newPublishCommand(opts *rootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Fetch the sheet once and upload the menu document to S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := opts.cfg.Publish
			if !pc.Enabled() {
				return errors.New("publishing is disabled: set PUBLISH_S3_BUCKET")
			}

			items, categories, err := opts.fetchMenu(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return errors.New("sheet yielded no menu items, refusing to publish an empty menu")
			}

			client, err := deps.S3(cmd.Context(), pc.Region)
			if err != nil {
				return err
			}
			pub, err := publish.New(client, publish.Config{
				Bucket:       pc.Bucket,
				Key:          pc.Key,
				CacheControl: pc.CacheControl,
				Timeout:      pc.Timeout,
			})
			if err != nil {
				return err
			}

			doc := publish.Document{Items: items, Categories: categories, UpdatedAt: time.Now().UTC()}
			if err := pub.Publish(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d items to s3://%s/%s\n", len(items), pc.Bucket, pc.Key)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs menuctl and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(Deps{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		if web.MapError(err).Code != "ERR000" {
			fmt.Fprintln(stderr, "Hint:", web.FormatUserError(err))
		}
		return 1
	}
	return 0
}
