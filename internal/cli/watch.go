package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/txn2/helix/pkg/livesync"
	"github.com/txn2/helix/pkg/tenant"
)

// watchEvent is one line of watch output.
type watchEvent struct {
	Time        time.Time          `json:"time"`
	TenantID    string             `json:"tenantId"`
	Name        string             `json:"name,omitempty"`
	Permissions tenant.Permissions `json:"customerPermissions"`
}

func newWatchCmd(opts *options) *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch <tenant-id>",
		Short: "Print a tenant's permissions every time they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := tenant.NewHTTPFetcher(tenant.HTTPFetcherConfig{
				BaseURL: opts.server,
				Token:   opts.token,
			})
			if err != nil {
				return err
			}

			syncer := livesync.New[tenant.Permissions](fetcher, livesync.Config{
				Interval:     interval,
				FetchTimeout: timeout,
			})
			defer func() { _ = syncer.Close() }()

			first := make(chan struct{})
			unsubscribe := syncer.Subscribe(printer(cmd.OutOrStdout(), first))
			defer unsubscribe()

			syncer.Start(args[0])

			if once {
				select {
				case <-first:
				case <-cmd.Context().Done():
				}
				return nil
			}
			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", livesync.DefaultInterval, "Poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout for a single fetch")
	cmd.Flags().BoolVar(&once, "once", false, "Exit after the first state is received")
	return cmd
}

// printer writes each view as a JSON line and closes first after the
// initial one.
func printer(w io.Writer, first chan struct{}) func(livesync.View[tenant.Permissions]) {
	var once sync.Once
	enc := json.NewEncoder(w)
	return func(v livesync.View[tenant.Permissions]) {
		if err := enc.Encode(watchEvent{
			Time:        time.Now().UTC(),
			TenantID:    v.SubjectID,
			Name:        v.DisplayName,
			Permissions: v.State,
		}); err != nil {
			_, _ = fmt.Fprintf(w, "error: %v\n", err)
		}
		once.Do(func() { close(first) })
	}
}
