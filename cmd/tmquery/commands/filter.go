package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/internal/store"
	"github.com/tendermint/tmquery/libs/log"
	"github.com/tendermint/tmquery/libs/pubsub"
	"github.com/tendermint/tmquery/libs/pubsub/query"
)

const filterClientID = "filter"

// MakeFilterCommand constructs a command that prints the JSON records
// matching a query.
func MakeFilterCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		useDB    bool
		load     bool
		direct   bool
		promAddr string
	)
	cmd := &cobra.Command{
		Use:   "filter QUERY [ARG...]",
		Short: "Print the JSON records that match a query",
		Long: `Print the JSON records that match a query.

Records are read from stdin, one JSON document per line, unless --db is set,
in which case the contents of the record store are filtered. With --load the
records on stdin are first appended to the store.

Each ARG is bound to a placeholder: the first to $0, the second to $1 and so
on. An ARG that is valid JSON is bound to the value it denotes; any other ARG
is bound as a string.

Records flow through a pubsub subscription. A record the query cannot be
evaluated against is skipped; --direct instead scans the store and stops at
the first such record.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !useDB && (load || direct) {
				return errors.New("--load and --direct require --db")
			}
			pred, err := parseQuery(conf, args[0])
			if err != nil {
				return err
			}
			q, err := query.Compile(pred)
			if err != nil {
				return err
			}
			qargs, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			if promAddr != "" {
				conf.Instrumentation.Prometheus = true
				conf.Instrumentation.PrometheusListenAddr = promAddr
			}

			f := &filter{
				conf:   conf,
				logger: logger,
				query:  q,
				args:   qargs,
				out:    cmd.OutOrStdout(),
			}
			ctx := cmd.Context()
			if !useDB {
				err = f.run(ctx, linesSource(cmd.InOrStdin()))
			} else {
				err = withStore(conf, func(rs *store.RecordStore) error {
					if load {
						n, err := loadRecords(rs, cmd.InOrStdin())
						if err != nil {
							return err
						}
						logger.Info("loaded records", "count", n)
					}
					if direct {
						return f.direct(ctx, rs)
					}
					return f.run(ctx, storeSource(rs))
				})
			}
			if cerr := ctx.Err(); cerr != nil {
				return fmt.Errorf("filter interrupted: %w", cerr)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&useDB, "db", false, "filter the record store instead of stdin")
	cmd.Flags().BoolVar(&load, "load", false, "append the records on stdin to the store first (requires --db)")
	cmd.Flags().BoolVar(&direct, "direct", false, "scan the store without a subscription (requires --db)")
	cmd.Flags().StringVar(&promAddr, "prometheus", "", "serve Prometheus metrics on this address while filtering")
	return cmd
}

// parseArgs converts command-line values to query arguments.
func parseArgs(args []string) ([]interface{}, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		rec, err := query.ParseJSON([]byte(a))
		if err != nil {
			out[i] = a
			continue
		}
		v, _ := rec.Lookup(nil)
		switch v.(type) {
		case nil, bool, float64, string:
			out[i] = v
		default:
			return nil, fmt.Errorf("argument $%d: objects and arrays cannot be compared", i)
		}
	}
	return out, nil
}

// A source calls emit for each record in turn.
type source func(ctx context.Context, emit func(data []byte, rec query.Record) error) error

func linesSource(r io.Reader) source {
	return func(ctx context.Context, emit func([]byte, query.Record) error) error {
		return readLines(r, func(line int, data []byte) error {
			data = append([]byte(nil), data...)
			rec, err := query.ParseJSON(data)
			if err != nil {
				return fmt.Errorf("line %d: invalid record: %w", line, err)
			}
			return emit(data, rec)
		})
	}
}

func storeSource(rs *store.RecordStore) source {
	return func(ctx context.Context, emit func([]byte, query.Record) error) error {
		return rs.Iterate(ctx, func(r store.Record) error {
			data := append([]byte(nil), r.Data...)
			rec, err := query.ParseJSON(data)
			if err != nil {
				return fmt.Errorf("record %d: %w", r.ID, err)
			}
			return emit(data, rec)
		})
	}
}

type filter struct {
	conf   *config.Config
	logger log.Logger
	query  *query.Compiled
	args   []interface{}
	out    io.Writer
}

// run publishes the records of src to a pubsub server and prints those
// delivered to a subscription for the query.
func (f *filter) run(ctx context.Context, src source) error {
	metrics, stopMetrics := f.startMetrics()
	defer stopMetrics()

	server := pubsub.NewServer(f.logger.With("module", "pubsub"),
		pubsub.BufferCapacity(f.conf.PubSub.BufferCapacity),
		pubsub.WithMetrics(metrics),
	)
	if err := server.Start(ctx); err != nil {
		return err
	}

	limit := f.conf.PubSub.SubscriptionLimit
	sub, err := server.SubscribeWithArgs(ctx, pubsub.SubscribeArgs{
		ClientID: filterClientID,
		Query:    f.query,
		Args:     f.args,
		Limit:    limit,
	})
	if err != nil {
		_ = server.Stop()
		return err
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var scanned, matched int
	g := taskgroup.New(taskgroup.Trigger(cancel))
	g.Go(func() error {
		for {
			msg, err := sub.Next(gctx)
			switch {
			case errors.Is(err, pubsub.ErrServerStopped):
				return nil
			case errors.Is(err, pubsub.ErrTerminated):
				return fmt.Errorf("output fell more than %d records behind: %w", limit, err)
			case err != nil:
				return err
			}
			matched++
			if _, err := fmt.Fprintf(f.out, "%s\n", msg.Data()); err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		err := src(gctx, func(data []byte, rec query.Record) error {
			scanned++
			return server.PublishWithRecord(gctx, data, rec)
		})
		if serr := server.Stop(); err == nil {
			err = serr
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	f.logger.Info("filter finished", "query", f.query.String(), "scanned", scanned, "matched", matched)
	return nil
}

// direct filters the store without a subscription.
func (f *filter) direct(ctx context.Context, rs *store.RecordStore) error {
	recs, err := rs.Filter(ctx, f.query, f.args...)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := fmt.Fprintf(f.out, "%s\n", r.Data); err != nil {
			return err
		}
	}
	f.logger.Info("filter finished", "query", f.query.String(), "matched", len(recs))
	return nil
}

// startMetrics returns the metrics for the pubsub server, serving them over
// HTTP when Prometheus is enabled.
func (f *filter) startMetrics() (*pubsub.Metrics, func()) {
	inst := f.conf.Instrumentation
	if !inst.Prometheus {
		return pubsub.NopMetrics(), func() {}
	}

	srv := &http.Server{
		Addr: inst.PrometheusListenAddr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	f.logger.Info("serving metrics", "addr", inst.PrometheusListenAddr)

	return pubsub.PrometheusMetrics(inst.Namespace), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			f.logger.Error("Prometheus HTTP server Shutdown", "err", err)
		}
	}
}
