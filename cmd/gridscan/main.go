package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/conf"
	glog "github.com/gridscan/gridscan/log"
	"github.com/gridscan/gridscan/metrics"
	"github.com/gridscan/gridscan/metrics/prometheus"
	"github.com/gridscan/gridscan/planner"
	"github.com/gridscan/gridscan/scan"
	"github.com/gridscan/gridscan/storage"
)

var cli struct {
	Log        glog.Config `embed:"" prefix:"log-"`
	Conf       string      `help:"Path to a JSONC scan configuration file." type:"existingfile"`
	Partitions int         `help:"Override the configured target partition count."`

	Plan planCmd `cmd:"" help:"Plan a scan and print the resulting partitions."`
	Scan scanCmd `cmd:"" help:"Plan a scan and execute it against the rows in the description file."`
}

func main() {
	kctx := kong.Parse(&cli)
	kctx.FatalIfErrorf(cli.Log.Configure())

	cfg := conf.NewDefaultConfig()
	if cli.Conf != "" {
		loaded, err := conf.Load(cli.Conf)
		kctx.FatalIfErrorf(err)
		cfg = loaded
	}
	if cli.Partitions > 0 {
		cfg.PartitionCount = cli.Partitions
	}
	kctx.FatalIfErrorf(kctx.Run(cfg))
}

type planCmd struct {
	Descriptor string `arg:"" help:"JSONC array description file." type:"existingfile"`
}

func (c *planCmd) Run(cfg *conf.Config) error {
	setup, err := loadSetup(c.Descriptor, cfg, metrics.NewTimingObserver())
	if err != nil {
		return err
	}
	partitions, residual, err := setup.scanner.Plan(setup.arrayName, setup.preds)
	if err != nil {
		return err
	}
	printPlan(setup.schema, partitions, residual)
	return nil
}

type scanCmd struct {
	Descriptor string   `arg:"" help:"JSONC array description file." type:"existingfile"`
	Columns    []string `help:"Columns to materialize. Defaults to all columns."`
}

func (c *scanCmd) Run(cfg *conf.Config) error {
	var observer metrics.ScanObserver = metrics.NewTimingObserver()
	var partitionsCounter metrics.Counter
	if cfg.EnableMetrics {
		factory := prometheus.NewFactory(*cfg)
		if err := factory.Start(); err != nil {
			return err
		}
		defer func() { _ = factory.Stop() }()
		observer = prometheus.NewObserver()
		counter, err := factory.CreateCounter("gridscan_partitions_scanned_total",
			"Partitions scanned to completion")
		if err != nil {
			return err
		}
		partitionsCounter = counter
	}

	setup, err := loadSetup(c.Descriptor, cfg, observer)
	if err != nil {
		return err
	}
	if partitionsCounter != nil {
		setup.scanner.SetPartitionsCounter(partitionsCounter)
	}
	partitions, residual, err := setup.scanner.Plan(setup.arrayName, setup.preds)
	if err != nil {
		return err
	}
	printPlan(setup.schema, partitions, residual)

	var projection []string
	resultSchema := setup.schema
	if len(c.Columns) > 0 {
		projection = c.Columns
		projected, err := setup.schema.Project(projection)
		if err != nil {
			return err
		}
		resultSchema = projected
	}
	fmt.Println(strings.Join(resultSchema.ColumnNames(), "\t"))

	sink := &printSink{}
	for _, partition := range partitions {
		if err := setup.scanner.ScanPartition(setup.arrayName, projection, partition, sink, nil); err != nil {
			return err
		}
	}
	fmt.Printf("%d record(s)\n", sink.rows)
	return nil
}

type setup struct {
	arrayName string
	schema    *common.ArrayInfo
	preds     []*planner.Predicate
	scanner   *scan.Scanner
}

// loadSetup reads the description file and stages its rows into an in-memory
// engine for the scanner to run against.
func loadSetup(path string, cfg *conf.Config, observer metrics.ScanObserver) (*setup, error) {
	d, err := loadDescriptor(path)
	if err != nil {
		return nil, err
	}
	schema, err := d.schema()
	if err != nil {
		return nil, err
	}
	domain, err := d.domainBounds(schema)
	if err != nil {
		return nil, err
	}
	rows, err := d.rows(schema)
	if err != nil {
		return nil, err
	}
	preds, err := d.predicates()
	if err != nil {
		return nil, err
	}

	engine := storage.NewFakeEngine()
	arr := engine.CreateArray(schema)
	if domain != nil {
		arr.SetNonEmptyDomain(domain)
	}
	arr.Insert(rows...)

	return &setup{
		arrayName: schema.Name,
		schema:    schema,
		preds:     preds,
		scanner:   scan.NewScanner(engine, cfg, observer, nil),
	}, nil
}

func printPlan(schema *common.ArrayInfo, partitions []*planner.Partition, residual []*planner.Predicate) {
	fmt.Printf("%d partition(s)\n", len(partitions))
	attrs := schema.Attributes()
	for _, p := range partitions {
		fmt.Printf("  %s  %s", p.ID, p.DimensionRanges)
		var conds []string
		for attrIdx, ranges := range p.AttributeRanges {
			if attrIdx >= len(attrs) {
				break
			}
			for _, r := range ranges {
				if r.IsUnbounded() {
					continue
				}
				conds = append(conds, fmt.Sprintf("%s in %s", attrs[attrIdx].Name, r))
			}
		}
		if len(conds) > 0 {
			fmt.Printf("  where %s", strings.Join(conds, " and "))
		}
		fmt.Println()
	}
	for _, pred := range residual {
		fmt.Printf("  residual: %s\n", pred)
	}
}

type printSink struct {
	rows int
}

func (s *printSink) HandleBatch(batch *scan.Batch) error {
	schema := batch.Schema()
	for row := 0; row < batch.RowCount(); row++ {
		cells := make([]string, len(schema.Columns))
		for col, info := range schema.Columns {
			switch {
			case batch.IsNull(row, col):
				cells[col] = "NULL"
			case info.ColumnType.Type == common.TypeString:
				cells[col] = batch.GetString(row, col)
			case info.ColumnType.IsFloat():
				cells[col] = fmt.Sprintf("%v", batch.GetFloat64(row, col))
			default:
				cells[col] = fmt.Sprintf("%d", batch.GetInt64(row, col))
			}
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	s.rows += batch.RowCount()
	return nil
}
