// Package popconctl implements the commands of popconctl, which inspects the tags, IOVs, payloads and execution log
// of a conditions database.
package popconctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/conddb"
	"github.com/armadaproject/popcon/internal/common/config"
	"github.com/armadaproject/popcon/internal/popconctl/build"
)

const timeLayout = "2006-01-02 15:04:05"

// App is the popconctl application; commands call its methods.
type App struct {
	Params *Params
	// Out is where output is written; os.Stdout unless set otherwise.
	Out io.Writer
}

// Params are set from command line flags before a command runs.
type Params struct {
	DatabasePath string
}

func New() *App {
	return &App{
		Params: &Params{},
		Out:    os.Stdout,
	}
}

func (a *App) withStore(action func(ctx context.Context, store *conddb.Store) error) error {
	if a.Params.DatabasePath == "" {
		return errors.New("no conditions database given")
	}
	if _, err := os.Stat(a.Params.DatabasePath); err != nil {
		return errors.Wrapf(err, "cannot open conditions database")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := conddb.Open(ctx, a.Params.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return action(ctx, store)
}

// ListTags prints every tag with its size and last IOV.
func (a *App) ListTags() error {
	return a.withStore(func(ctx context.Context, store *conddb.Store) error {
		tags, err := store.ListTags(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tOBJECT TYPE\tIOVS\tLAST SINCE\tMODIFIED")
		for _, tag := range tags {
			info, err := store.TagInfo(ctx, tag.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				tag.Name, tag.ObjectType, info.Size, formatSince(info.LastInterval.Since), tag.ModificationTime.Format(timeLayout))
		}
		return w.Flush()
	})
}

// ListIovs prints up to limit IOVs of tag valid from the given time onwards.
func (a *App) ListIovs(tag string, from time.Time, limit int) error {
	return a.withStore(func(ctx context.Context, store *conddb.Store) error {
		if _, err := store.GetTag(ctx, tag); err != nil {
			return err
		}
		iovs, err := store.ListIovs(ctx, tag, cond.FromTime(from), limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
		fmt.Fprintln(w, "SINCE\tTIME\tPAYLOAD\tINSERTED")
		for _, i := range iovs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				uint64(i.Since), formatSince(i.Since), i.PayloadId, i.InsertionTime.Format(timeLayout))
		}
		return w.Flush()
	})
}

// ShowPayload prints the object type and content of a payload.
func (a *App) ShowPayload(hash string) error {
	return a.withStore(func(ctx context.Context, store *conddb.Store) error {
		objectType, data, err := store.FetchPayloadData(ctx, hash)
		if err != nil {
			return err
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, data, "", "  "); err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintf(a.Out, "Object type: %s\n%s\n", objectType, indented.String())
		return nil
	})
}

// ListExecutions prints the most recent executions recorded for tag.
func (a *App) ListExecutions(tag string, limit int) error {
	return a.withStore(func(ctx context.Context, store *conddb.Store) error {
		executions, err := store.ListExecutions(ctx, tag, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tHANDLER\tSTART\tDURATION\tIOVS\tSTATUS\tMESSAGE")
		for _, e := range executions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				e.Id, e.Handler, e.StartTime.Format(timeLayout), e.EndTime.Sub(e.StartTime).Round(time.Millisecond),
				e.IovsWritten, e.Status, e.Message)
		}
		return w.Flush()
	})
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return w.Flush()
}

// ParseFrom parses the --from flag; the empty string means the beginning of time.
func ParseFrom(s string) (time.Time, error) {
	return config.ParseTime(s)
}

func formatSince(since cond.Time) string {
	if since == 0 {
		return "-"
	}
	return since.Time().Format(timeLayout)
}
