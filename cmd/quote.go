package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clinic/internal/catalog"
	"clinic/internal/domain"
	"clinic/internal/pricing"
	"clinic/internal/repository"
	"clinic/internal/seed"
	"clinic/internal/service"
	"clinic/internal/validation"
)

var (
	quoteType      string
	quoteMaterials map[string]int64
	quoteFields    map[string]string
	quoteJSON      bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote [demo-order-id]",
	Short: "Price an order offline",
	Long: `Prices either one of the demo orders or an ad-hoc order described by flags,
and reports what still blocks its completion.`,
	Example: `  clinic quote ord1
  clinic quote --type cavity_filling --material mat1=1,mat6=2 --field cavity_count=3 --field xray_needed=true`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteType, "type", "", "order type id")
	quoteCmd.Flags().StringToInt64Var(&quoteMaterials, "material", nil, "material quantities, id=qty")
	quoteCmd.Flags().StringToStringVar(&quoteFields, "field", nil, "intake values, field=value")
	quoteCmd.Flags().BoolVar(&quoteJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(quoteCmd)
}

type quoteOutput struct {
	Order      domain.Order       `json:"order"`
	Quote      service.PriceQuote `json:"quote"`
	Validation validation.Result  `json:"validation"`
}

func runQuote(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc := service.NewOrderService(
		cat,
		pricing.NewEngine(cat, pricing.DefaultRules()),
		validation.NewValidator(cat),
		repository.NewMemoryStore(),
		repository.NewMemoryTx(),
		service.WithLogger(logger),
	)

	var id string
	switch {
	case len(args) == 1:
		if err := svc.Seed(ctx, seed.Orders(time.Now())); err != nil {
			return err
		}
		id = args[0]
	case quoteType != "":
		id, err = adHocOrder(ctx, svc, cat)
		if err != nil {
			return err
		}
	default:
		return errors.New("either a demo order id or --type is required")
	}

	out := quoteOutput{}
	o, err := svc.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("order %s: %w", id, err)
	}
	out.Order = *o
	if out.Quote, err = svc.Quote(ctx, id); err != nil {
		return err
	}
	if out.Validation, err = svc.Validate(ctx, id); err != nil {
		return err
	}

	if quoteJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal quote: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printQuote(cmd, out)
	return nil
}

func adHocOrder(ctx context.Context, svc *service.OrderService, cat *catalog.Catalog) (string, error) {
	ot, err := cat.OrderTypeByID(quoteType)
	if err != nil {
		return "", err
	}
	o, err := svc.CreateOrder(ctx, "walk-in", "-", ot.ID)
	if err != nil {
		return "", err
	}
	if _, err := svc.SetMaterialSelection(ctx, o.ID, domain.Selection(quoteMaterials)); err != nil {
		return "", err
	}
	intake := domain.Intake{}
	for k, v := range quoteFields {
		f, ok := ot.Field(k)
		if !ok {
			return "", fmt.Errorf("field %q of order type %q: %w", k, ot.ID, domain.ErrNotFound)
		}
		intake[k] = v
		if f.Kind == domain.FieldCheckbox {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return "", fmt.Errorf("field %q: %w", k, domain.ErrInvalidInput)
			}
			intake[k] = b
		}
	}
	if _, err := svc.SetIntake(ctx, o.ID, intake); err != nil {
		return "", err
	}
	return o.ID, nil
}

func printQuote(cmd *cobra.Command, out quoteOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Order %s (%s, %s)\n", out.Order.ID, out.Order.TypeID, out.Order.Status)
	fmt.Fprintln(w)
	for _, l := range out.Quote.Lines {
		switch l.Kind {
		case pricing.LineMaterial:
			fmt.Fprintf(w, "  %-28s %4d x %8s %10s\n", l.Label, l.Quantity, l.UnitPrice.StringFixed(2), l.Amount.StringFixed(2))
		default:
			fmt.Fprintf(w, "  %-42s %10s\n", l.Label, l.Amount.StringFixed(2))
		}
	}
	label := "Total"
	if out.Quote.Final {
		label = "Total (final)"
	}
	fmt.Fprintf(w, "  %-42s %10s\n", label, out.Quote.Total.StringFixed(2))

	if out.Validation.OK() {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Missing before completion:")
	for _, m := range append(out.Validation.MissingFields, out.Validation.MissingMaterials...) {
		fmt.Fprintf(w, "  - %s\n", m)
	}
}
