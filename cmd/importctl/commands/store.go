package commands

import (
	"fmt"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewStoreCmd creates the store command for seeding the local SQLite store
func NewStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the local store used for category and duplicate checks",
	}
	cmd.AddCommand(newStoreAddCategoryCmd())
	cmd.AddCommand(newStoreAddEntryCmd())
	cmd.AddCommand(newStoreListCmd())
	return cmd
}

func newStoreAddCategoryCmd() *cobra.Command {
	var local localFlags
	cmd := &cobra.Command{
		Use:   "add-category NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := local.userID()
			if err != nil {
				return err
			}
			store, err := local.open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			id, err := store.AddCategory(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category %q added (%s)\n", args[0], id)
			return nil
		},
	}
	local.register(cmd)
	return cmd
}

func newStoreAddEntryCmd() *cobra.Command {
	var (
		local      localFlags
		entry      models.StoredEntry
		categoryID string
	)
	cmd := &cobra.Command{
		Use:   "add-entry",
		Short: "Add an existing time entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entry.Date == "" {
				return fmt.Errorf("--date is required")
			}
			if categoryID != "" {
				id, err := uuid.Parse(categoryID)
				if err != nil {
					return fmt.Errorf("invalid --category-id: %w", err)
				}
				entry.CategoryID = &id
			}
			userID, err := local.userID()
			if err != nil {
				return err
			}
			store, err := local.open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.AddEntry(cmd.Context(), userID, entry); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Entry added.")
			return nil
		},
	}
	local.register(cmd)
	cmd.Flags().StringVar(&entry.Date, "date", "", "Entry date (required)")
	cmd.Flags().StringVar(&entry.StartTime, "start", "", "Start time")
	cmd.Flags().StringVar(&entry.EndTime, "end", "", "End time")
	cmd.Flags().StringVar(&entry.Description, "description", "", "Description")
	cmd.Flags().StringVar(&categoryID, "category-id", "", "Category UUID")
	return cmd
}

// storeContents is what store list prints
type storeContents struct {
	Categories []string             `json:"categories" yaml:"categories"`
	Entries    []models.StoredEntry `json:"entries" yaml:"entries"`
}

func newStoreListCmd() *cobra.Command {
	var (
		local  localFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories and entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			userID, err := local.userID()
			if err != nil {
				return err
			}
			store, err := local.open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			categories, err := store.ListCategoryNames(cmd.Context(), userID)
			if err != nil {
				return err
			}
			entries, err := store.ListStoredEntries(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if categories == nil {
				categories = []string{}
			}
			if entries == nil {
				entries = []models.StoredEntry{}
			}
			return writeOutput(cmd.OutOrStdout(), output, storeContents{Categories: categories, Entries: entries})
		},
	}
	local.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json or yaml")
	return cmd
}
