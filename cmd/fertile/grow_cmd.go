package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/jmaravall/fertile"
	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/dataset/csv"
	"github.com/jmaravall/fertile/dataset/sqlstream"
	"github.com/jmaravall/fertile/dataset/sqlstream/pgadapter"
	"github.com/jmaravall/fertile/dataset/sqlstream/sqlite3adapter"
	"github.com/jmaravall/fertile/split"
	splityaml "github.com/jmaravall/fertile/split/yaml"
	"github.com/spf13/cobra"
)

type growCmdConfig struct {
	*rootCmdConfig
	dataInput     string
	metadataInput string
	paramsInput   string
	labelFeatures []string
	weightColumn  string
	storeURL      string
	slotID        string
	depth         int
	seed          int64
	maxPasses     int
	sparse        bool
	ctx           context.Context
}

func growCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &growCmdConfig{rootCmdConfig: rootConfig, ctx: context.Background()}
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Grow a leaf from a stream of examples",
		Long:  `Collect split statistics for a decision-tree leaf from a stream of examples and report the best split when the leaf is ready`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			features, err := splityaml.ReadFeaturesFromFile(config.metadataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			params, err := fertile.ReadParamsFromFile(config.paramsInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			inputs, labels, err := config.partitionFeatures(features)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			table, err := config.trainingTable(inputs, labels)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			if config.seed == 0 {
				config.seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(config.seed))
			stats, err := config.growStats(*params, labels, rng)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(6)
			}
			store, err := openSlotStore(config.ctx, config.storeURL, features)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(7)
			}
			defer store.Close(config.ctx)
			checkpoint := stats.ToSlot()
			if config.slotID != "" {
				s, err := store.Get(config.ctx, config.slotID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "retrieving slot %s: %v\n", config.slotID, err)
					os.Exit(8)
				}
				if s == nil {
					fmt.Fprintf(os.Stderr, "slot %s does not exist in the store\n", config.slotID)
					os.Exit(8)
				}
				err = stats.FromSlot(s)
				if err != nil {
					fmt.Fprintf(os.Stderr, "restoring slot %s: %v\n", config.slotID, err)
					os.Exit(8)
				}
				checkpoint = s
				config.Logf("Resumed slot %s with accumulated weight %v and %d candidate splits", s.ID, stats.WeightSum(), stats.NumSplits())
			} else {
				err = store.Create(config.ctx, checkpoint)
				if err != nil {
					fmt.Fprintf(os.Stderr, "creating slot: %v\n", err)
					os.Exit(8)
				}
				config.Logf("Created slot %s", checkpoint.ID)
			}
			err = config.proposeSplits(stats, inputs, table, rng)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(9)
			}
			config.Logf("Growing leaf from %d examples with %d candidate splits...", table.Count(), stats.NumSplits())
			for pass := 0; pass < config.maxPasses && !stats.IsFinished(); pass++ {
				for i := 0; i < table.Count(); i++ {
					err = stats.ObserveExample(table, table, i)
					if err != nil {
						fmt.Fprintf(os.Stderr, "observing example %d: %v\n", i, err)
						os.Exit(10)
					}
				}
				s := stats.ToSlot()
				s.ID = checkpoint.ID
				checkpoint = s
				err = store.Store(config.ctx, checkpoint)
				if err != nil {
					fmt.Fprintf(os.Stderr, "checkpointing slot %s: %v\n", checkpoint.ID, err)
					os.Exit(11)
				}
				config.Logf("Checkpointed slot %s after pass %d with accumulated weight %v", checkpoint.ID, pass+1, stats.WeightSum())
			}
			if !stats.IsFinished() {
				config.Logf("Leaf is not ready to split after %d passes", config.maxPasses)
				fmt.Printf("slot %s: not ready to split (accumulated weight %v)\n", checkpoint.ID, stats.WeightSum())
				return
			}
			winner, ok := stats.SelectBestSplit()
			if !ok {
				config.Logf("Leaf is finished but no candidate split partitions its examples")
				fmt.Printf("slot %s: finished without a usable split\n", checkpoint.ID)
				return
			}
			fmt.Printf("slot %s: split on %v (left weight %v, right weight %v)\n", checkpoint.ID, winner.Split, winner.Left.WeightSum, winner.Right.WeightSum)
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL DB connection URL with examples to grow the leaf from (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the different features available on the input (required)")
	cmd.PersistentFlags().StringVarP(&(config.paramsInput), "params", "p", "", "path to a YML file with the growth parameters (required)")
	cmd.PersistentFlags().StringSliceVarP(&(config.labelFeatures), "label", "l", nil, "name of a feature the leaf should learn to predict, a single discrete feature or one or more continuous ones (required)")
	cmd.PersistentFlags().StringVar(&(config.weightColumn), "weight-column", "", "name of a numeric column with per-example weights on SQL inputs (defaults to none: every example weighs 1)")
	cmd.PersistentFlags().StringVar(&(config.storeURL), "store", "", "URL of the store to checkpoint the slot on: a redis:// or mongodb:// URL (defaults to an in-process memory store)")
	cmd.PersistentFlags().StringVar(&(config.slotID), "slot", "", "ID of a slot to resume from the store instead of starting an empty one")
	cmd.PersistentFlags().IntVarP(&(config.depth), "depth", "d", 0, "depth of the leaf on its tree, used to resolve depth-dependent growth parameters")
	cmd.PersistentFlags().Int64Var(&(config.seed), "seed", 0, "seed for the source of randomness (defaults to 0: seed with the current time)")
	cmd.PersistentFlags().IntVar(&(config.maxPasses), "max-passes", 1, "maximum number of passes over the input examples before giving up on finishing the leaf")
	cmd.PersistentFlags().BoolVar(&(config.sparse), "sparse", false, "accumulate classification counts on sparse maps instead of dense slices")
	return cmd
}

func (gcc *growCmdConfig) Validate() error {
	if gcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if gcc.paramsInput == "" {
		return fmt.Errorf("required params flag was not set")
	}
	if len(gcc.labelFeatures) == 0 {
		return fmt.Errorf("required label flag was not set")
	}
	if gcc.maxPasses < 1 {
		return fmt.Errorf("max-passes must be at least 1")
	}
	return nil
}

func (gcc *growCmdConfig) partitionFeatures(features []split.Feature) ([]split.Feature, []split.Feature, error) {
	labelNames := make(map[string]bool)
	for _, n := range gcc.labelFeatures {
		labelNames[n] = true
	}
	var inputs, labels []split.Feature
	for _, f := range features {
		if labelNames[f.Name()] {
			labels = append(labels, f)
			delete(labelNames, f.Name())
			continue
		}
		inputs = append(inputs, f)
	}
	for n := range labelNames {
		return nil, nil, fmt.Errorf("label feature '%s' is not defined", n)
	}
	return inputs, labels, nil
}

func (gcc *growCmdConfig) growStats(params fertile.Params, labels []split.Feature, rng *rand.Rand) (fertile.GrowStats, error) {
	if _, ok := labels[0].(*split.ContinuousFeature); ok {
		if params.NumOutputs != len(labels) {
			return nil, fmt.Errorf("params declare %d outputs but %d continuous label features were given", params.NumOutputs, len(labels))
		}
		return fertile.NewRegressionStats(params, gcc.depth, rng)
	}
	df := labels[0].(*split.DiscreteFeature)
	if params.NumOutputs != len(df.AvailableValues()) {
		return nil, fmt.Errorf("params declare %d outputs but label feature %s has %d values", params.NumOutputs, df.Name(), len(df.AvailableValues()))
	}
	if gcc.sparse {
		return fertile.NewSparseClassificationStats(params, gcc.depth, rng)
	}
	return fertile.NewDenseClassificationStats(params, gcc.depth, rng)
}

func (gcc *growCmdConfig) trainingTable(inputs, labels []split.Feature) (*dataset.Table, error) {
	var f *os.File
	if gcc.dataInput == "" {
		gcc.Logf("Reading examples from STDIN...")
		f = os.Stdin
	} else {
		if strings.HasPrefix(gcc.dataInput, "postgresql://") {
			return gcc.postgreSQLTable(inputs, labels)
		}
		if strings.HasSuffix(gcc.dataInput, ".db") {
			return gcc.sqlite3Table(inputs, labels)
		}
		gcc.Logf("Opening %s to read examples...", gcc.dataInput)
		var err error
		f, err = os.Open(gcc.dataInput)
		if err != nil {
			err = fmt.Errorf("opening examples at %s: %v", gcc.dataInput, err)
			return nil, err
		}
		defer f.Close()
	}
	table, err := csv.ReadTable(f, inputs, labels)
	if err != nil {
		return nil, fmt.Errorf("reading examples: %v", err)
	}
	return table, nil
}

func (gcc *growCmdConfig) sqlite3Table(inputs, labels []split.Feature) (*dataset.Table, error) {
	gcc.Logf("Creating SQLite3 adapter for file %s to read examples...", gcc.dataInput)
	adapter, err := sqlite3adapter.New(gcc.dataInput)
	if err != nil {
		return nil, err
	}
	gcc.Logf("Reading examples over SQLite3 adapter for file %s...", gcc.dataInput)
	return sqlstream.ReadTable(gcc.ctx, adapter, inputs, labels, gcc.weightColumn)
}

func (gcc *growCmdConfig) postgreSQLTable(inputs, labels []split.Feature) (*dataset.Table, error) {
	gcc.Logf("Creating PostgreSQL adapter for url %s to read examples...", gcc.dataInput)
	adapter, err := pgadapter.New(gcc.dataInput)
	if err != nil {
		return nil, err
	}
	gcc.Logf("Reading examples over PostgreSQL adapter for url %s...", gcc.dataInput)
	return sqlstream.ReadTable(gcc.ctx, adapter, inputs, labels, gcc.weightColumn)
}

/*
proposeSplits registers random candidate splits on the given stats
until they hold as many as the growth parameters allow: a random pivot
threshold drawn from the examples for continuous features, a random
equality from the available values for discrete ones.
*/
func (gcc *growCmdConfig) proposeSplits(stats fertile.GrowStats, inputs []split.Feature, table *dataset.Table, rng *rand.Rand) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input features to propose splits on")
	}
	if table.Count() == 0 {
		return fmt.Errorf("no examples to propose splits from")
	}
	for attempts := 0; !stats.FullOfSplits(); attempts++ {
		if attempts >= 100*table.Count() {
			return fmt.Errorf("giving up on proposing candidate splits after %d attempts", attempts)
		}
		f := inputs[rng.Intn(len(inputs))]
		var s split.Split
		switch feature := f.(type) {
		case *split.DiscreteFeature:
			values := feature.AvailableValues()
			s = split.NewEqualitySplit(feature, values[rng.Intn(len(values))])
		case *split.ContinuousFeature:
			v, err := table.Example(rng.Intn(table.Count())).ValueFor(feature)
			if err != nil {
				return fmt.Errorf("proposing split on %s: %v", feature.Name(), err)
			}
			if v == nil {
				continue
			}
			s = split.NewThresholdSplit(feature, v.(float64))
		default:
			return fmt.Errorf("cannot propose splits on feature %s", f.Name())
		}
		err := stats.Register(s)
		if err != nil {
			return fmt.Errorf("registering candidate split: %v", err)
		}
	}
	return nil
}
