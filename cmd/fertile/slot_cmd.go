package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmaravall/fertile/slot"
	splityaml "github.com/jmaravall/fertile/split/yaml"
	"github.com/spf13/cobra"
)

type slotCmdConfig struct {
	*rootCmdConfig
	metadataInput string
	storeURL      string
	ctx           context.Context
}

func slotCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &slotCmdConfig{rootCmdConfig: rootConfig, ctx: context.Background()}
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Manage checkpointed slots",
		Long:  `Show and delete the slots checkpointed on a store`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Usage()
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features the slots were grown with (required)")
	cmd.PersistentFlags().StringVar(&(config.storeURL), "store", "", "URL of the store holding the slots: a redis:// or mongodb:// URL (required)")
	cmd.AddCommand(showSlotCmd(config), deleteSlotCmd(config))
	return cmd
}

func showSlotCmd(config *slotCmdConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a checkpointed slot",
		Long:  `Show the accumulated statistics of a slot checkpointed on the store`,
		Run: func(cmd *cobra.Command, args []string) {
			store, s, err := config.openAndGet(args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer store.Close(config.ctx)
			fmt.Println(s)
		},
	}
}

func deleteSlotCmd(config *slotCmdConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a checkpointed slot",
		Long:  `Delete a slot checkpointed on the store`,
		Run: func(cmd *cobra.Command, args []string) {
			store, s, err := config.openAndGet(args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer store.Close(config.ctx)
			err = store.Delete(config.ctx, s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "deleting slot %s: %v\n", s.ID, err)
				os.Exit(2)
			}
			config.Logf("Deleted slot %s", s.ID)
		},
	}
}

func (scc *slotCmdConfig) openAndGet(args []string) (slot.Store, *slot.Slot, error) {
	if scc.metadataInput == "" {
		return nil, nil, fmt.Errorf("required metadata flag was not set")
	}
	if scc.storeURL == "" {
		return nil, nil, fmt.Errorf("required store flag was not set")
	}
	if len(args) != 1 {
		return nil, nil, fmt.Errorf("expected exactly one slot ID argument")
	}
	features, err := splityaml.ReadFeaturesFromFile(scc.metadataInput)
	if err != nil {
		return nil, nil, err
	}
	store, err := openSlotStore(scc.ctx, scc.storeURL, features)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Get(scc.ctx, args[0])
	if err != nil {
		store.Close(scc.ctx)
		return nil, nil, fmt.Errorf("retrieving slot %s: %v", args[0], err)
	}
	if s == nil {
		store.Close(scc.ctx)
		return nil, nil, fmt.Errorf("slot %s does not exist in the store", args[0])
	}
	return store, s, nil
}
