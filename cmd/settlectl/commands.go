package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/alimikegami/digital-store/settlement-service/internal/app"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/database/migrations"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	"github.com/alimikegami/digital-store/settlement-service/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func openDB() (*config.Config, *sqlx.DB, error) {
	conf := config.CreateNewConfig()

	db, err := app.OpenDatabase(conf)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return conf, db, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the settlement schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return migrations.Migrate(cmd.Context(), db)
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [order-id]",
		Short: "Ask the provider for the current state of a pending order",
		Long: `Ask the payment provider for the current state of a pending order and
settle it if the provider reports a final outcome.

Reference and bank transfer orders cannot be verified automatically; confirm
them through the admin API instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			a := app.App{DB: db, Config: conf}
			if err := a.Setup(); err != nil {
				return err
			}

			result, err := a.Settlement.VerifyOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage customer wallets",
	}

	withWallet := func(run func(cmd *cobra.Command, wallet service.WalletService, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			conf, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			normalizer, err := app.NewNormalizer(conf.SettlementConfig)
			if err != nil {
				return err
			}

			wallet := service.CreateWalletService(repository.CreateWalletRepository(db), normalizer.SettlementCurrency())
			return run(cmd, wallet, args)
		}
	}

	register := &cobra.Command{
		Use:   "register [email]",
		Short: "Open a wallet with a zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: withWallet(func(cmd *cobra.Command, wallet service.WalletService, args []string) error {
			resp, err := wallet.Register(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}),
	}

	balance := &cobra.Command{
		Use:   "balance [email]",
		Short: "Show a wallet balance and its latest transactions",
		Args:  cobra.ExactArgs(1),
		RunE: withWallet(func(cmd *cobra.Command, wallet service.WalletService, args []string) error {
			resp, err := wallet.GetBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			txs, err := wallet.GetTransactions(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), struct {
				Wallet       dto.WalletResponse              `json:"wallet"`
				Transactions []dto.WalletTransactionResponse `json:"transactions"`
			}{resp, txs})
		}),
	}
	balance.Flags().IntP("limit", "n", 10, "Number of transactions to show")

	credit := &cobra.Command{
		Use:   "credit [email] [amount]",
		Short: "Credit a wallet",
		Args:  cobra.ExactArgs(2),
		RunE: withWallet(func(cmd *cobra.Command, wallet service.WalletService, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			description, _ := cmd.Flags().GetString("description")
			reference, _ := cmd.Flags().GetString("reference")

			resp, err := wallet.Credit(cmd.Context(), dto.WalletCreditRequest{
				Email:       args[0],
				Amount:      amount,
				Description: description,
				Reference:   reference,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}),
	}
	credit.Flags().StringP("description", "d", "manual top-up", "Journal description")
	credit.Flags().StringP("reference", "r", "", "Idempotency reference; a repeated reference is rejected")

	cmd.AddCommand(register, balance, credit)

	return cmd
}
