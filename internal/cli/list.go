package cli

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/reckless-spender/internal/api/handlers"
	"github.com/dvloznov/reckless-spender/internal/domain"
)

func newAccountsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			accounts, err := a.store.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(accounts))
			for _, acc := range accounts {
				typ := "-"
				if acc.Type != nil {
					typ = string(*acc.Type)
				}
				rows = append(rows, []string{acc.ID, acc.Name, typ})
			}
			printer{w: cmd.OutOrStdout()}.table([]string{"ID", "NAME", "TYPE"}, rows)
			return nil
		}),
	}
}

func newCategoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			categories, err := a.store.ListCategories(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{c.ID, c.Name, strconv.FormatBool(c.IsCustom)})
			}
			printer{w: cmd.OutOrStdout()}.table([]string{"ID", "NAME", "CUSTOM"}, rows)
			return nil
		}),
	}
}

func newTransactionsCommand(a *app) *cobra.Command {
	flags := []string{"start-date", "end-date", "account-id", "category-id", "reconciled", "limit", "offset"}

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			// Flags map onto the API query parameters so both validate alike.
			q := url.Values{}
			for _, name := range flags {
				if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
					q.Set(strings.ReplaceAll(name, "-", "_"), f.Value.String())
				}
			}
			filter, err := handlers.ParseTransactionFilter(q)
			if err != nil {
				return err
			}

			txs, err := a.store.ListTransactions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(txs))
			for _, tx := range txs {
				category := "-"
				if tx.CategoryID != nil {
					category = *tx.CategoryID
				}
				reconciled := " "
				if tx.Reconciled {
					reconciled = "✓"
				}
				rows = append(rows, []string{
					tx.Date.String(), domain.FormatAmount(tx.Amount), tx.Description, category, reconciled, tx.ID,
				})
			}
			printer{w: cmd.OutOrStdout()}.table([]string{"DATE", "AMOUNT", "DESCRIPTION", "CATEGORY", "R", "ID"}, rows)
			return nil
		}),
	}

	cmd.Flags().String("start-date", "", "earliest date, YYYY-MM-DD")
	cmd.Flags().String("end-date", "", "latest date, YYYY-MM-DD")
	cmd.Flags().String("account-id", "", "only this account")
	cmd.Flags().String("category-id", "", "only this category")
	cmd.Flags().String("reconciled", "", "true or false")
	cmd.Flags().Int("limit", 100, "page size, 1-1000")
	cmd.Flags().Int("offset", 0, "rows to skip")
	return cmd
}
