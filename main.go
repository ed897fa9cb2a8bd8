package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/Ahmed-Sermani/okapi/config"
	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/Ahmed-Sermani/okapi/graph/edgelist"
	"github.com/Ahmed-Sermani/okapi/graph/store/cdb"
	"github.com/Ahmed-Sermani/okapi/job"
	"github.com/Ahmed-Sermani/okapi/output"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var (
	appName = "okapi"
	appSha  = ""
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetOutput(os.Stderr)
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := run(rootLogger, logger); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		os.Exit(1)
	}
}

// paramList collects repeated -param key=value flags.
type paramList []string

func (p *paramList) String() string { return strings.Join(*p, ",") }

func (p *paramList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func run(rootLogger *logrus.Logger, logger *logrus.Entry) error {
	var (
		pairs      paramList
		algorithm  = flag.String("algorithm", "", "The algorithm to run (supported: "+strings.Join(job.Algorithms(), ", ")+")")
		inputURI   = flag.String("input", "-", "The edge list to load (supported: a file path, - for stdin, postgresql://user@host:26257/okapi?sslmode=disable)")
		seedsPath  = flag.String("seeds", "", "An optional file with one seed vertex id per line")
		outputURI  = flag.String("output", "-", "Where to publish the results (supported: a file path, - for stdout, postgresql://user@host:26257/okapi?sslmode=disable)")
		configPath = flag.String("config", "", "An optional JSON file with job parameters")
		logLevel   = flag.String("log-level", "info", "The log level (debug, info, warn, error)")
	)
	flag.Var(&pairs, "param", "A key=value job parameter; may be repeated and overrides the config file")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return xerrors.Errorf("invalid log level: %w", err)
	}
	rootLogger.SetLevel(level)

	params, err := loadParams(*configPath, pairs)
	if err != nil {
		return err
	}
	if _, err = job.LookupAlgorithm(*algorithm); err != nil {
		return xerrors.Errorf("algorithm must be specified with --algorithm: %w", err)
	}
	inputOpts, err := job.InputOptions(params)
	if err != nil {
		return err
	}

	jobID := uuid.New()
	logger = logger.WithField("job_id", jobID.String())

	edges, closeInput, err := getEdgeSource(*inputURI, inputOpts, logger)
	if err != nil {
		return err
	}
	defer closeInput()

	seeds, err := readSeeds(*seedsPath)
	if err != nil {
		return err
	}

	out, closeOutput, err := getResultWriter(*outputURI, jobID, logger)
	if err != nil {
		return err
	}
	defer closeOutput()

	task, err := job.NewTask(*algorithm, params, logger.WithField("algorithm", *algorithm))
	if err != nil {
		return err
	}
	defer func() { _ = task.Close() }()

	runner, err := job.NewRunner(job.Config{
		ID:        jobID,
		Algorithm: *algorithm,
		Task:      task,
		Edges:     edges,
		Seeds:     seeds,
		Output:    out,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGHUP)
	defer cancel()

	_, err = runner.Run(ctx)
	return err
}

// loadParams merges the config file with the command line parameters. The
// number of compute workers defaults to the number of CPUs.
func loadParams(configPath string, pairs []string) (config.Params, error) {
	params := config.New(map[string]string{
		"bsp.workers": strconv.Itoa(runtime.NumCPU()),
	})
	if configPath != "" {
		fileParams, err := config.ReadFile(configPath)
		if err != nil {
			return config.Params{}, err
		}
		params = params.Merge(fileParams)
	}
	flagParams, err := config.Parse(pairs)
	if err != nil {
		return config.Params{}, err
	}
	return params.Merge(flagParams), nil
}

func getEdgeSource(inputURI string, opts edgelist.Options, logger *logrus.Entry) (graph.EdgeIterator, func(), error) {
	if inputURI == "" {
		return nil, nil, xerrors.Errorf("input must be specified with --input")
	}
	nop := func() {}
	if inputURI == "-" {
		logger.Info("reading edges from stdin")
		return edgelist.NewReader(io.NopCloser(os.Stdin), opts), nop, nil
	}

	uri, err := url.Parse(inputURI)
	if err == nil && uri.Scheme == "postgresql" {
		logger.Info("reading edges from CDB")
		store, err := cdb.NewCockroachDBStore(inputURI)
		if err != nil {
			return nil, nil, err
		}
		edges, err := store.Edges()
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		if opts.Undirected {
			logger.Warn("undirected loading is only supported for edge list files")
		}
		return edges, func() { _ = store.Close() }, nil
	}

	f, err := os.Open(inputURI)
	if err != nil {
		return nil, nil, xerrors.Errorf("open input: %w", err)
	}
	logger.WithField("path", inputURI).Info("reading edges from file")
	return edgelist.NewReader(f, opts), nop, nil
}

func readSeeds(path string) ([]graph.ID, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open seeds: %w", err)
	}
	defer func() { _ = f.Close() }()
	return edgelist.ReadIDs(f)
}

func getResultWriter(outputURI string, jobID uuid.UUID, logger *logrus.Entry) (job.ResultWriter, func(), error) {
	if outputURI == "" || outputURI == "-" {
		return output.NewTextWriter(os.Stdout), func() {}, nil
	}

	uri, err := url.Parse(outputURI)
	if err == nil && uri.Scheme == "postgresql" {
		store, err := cdb.NewCockroachDBStore(outputURI)
		if err != nil {
			return nil, nil, err
		}
		if err = store.EnsureSchema(); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		logger.Info("publishing results to CDB")
		return store.ResultWriter(jobID), func() { _ = store.Close() }, nil
	}

	f, err := os.Create(outputURI)
	if err != nil {
		return nil, nil, xerrors.Errorf("create output: %w", err)
	}
	logger.WithField("path", outputURI).Info("publishing results to file")
	return output.NewTextWriter(f), func() {
		if err := f.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close output:", err)
		}
	}, nil
}
