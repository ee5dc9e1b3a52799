package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/leasehold/internal/invoice/domain"
)

type PDFRenderer struct{}

func NewRenderer() invoicedomain.Renderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, detail invoicedomain.InvoiceDetail, opts invoicedomain.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Invoice", props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, strings.ToUpper(detail.Status), props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
	)

	generated := ""
	if !opts.GeneratedAt.IsZero() {
		generated = opts.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")
	}
	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+detail.ID.String(), props.Text{Top: 0}),
			text.New("Billing period: "+detail.Period, props.Text{Top: 4}),
			text.New("Lease term: "+detail.LeaseStartDate+" to "+detail.LeaseEndDate, props.Text{Top: 8}),
			text.New("Generated: "+generated, props.Text{Top: 12}),
		),
		col.New(6),
	)

	landlord := partyLines(detail.Landlord)
	tenant := partyLines(detail.Tenant)
	property := []string{"", "", ""}
	if detail.Property != nil {
		property = []string{detail.Property.Name, detail.Property.Address, detail.Property.City}
	}
	m.AddRow(30,
		col.New(4).Add(
			text.New("Landlord", props.Text{Style: fontstyle.Bold}),
			text.New(landlord[0], props.Text{Top: 5}),
			text.New(landlord[1], props.Text{Top: 9}),
			text.New(landlord[2], props.Text{Top: 13}),
		),
		col.New(4).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(tenant[0], props.Text{Top: 5}),
			text.New(tenant[1], props.Text{Top: 9}),
			text.New(tenant[2], props.Text{Top: 13}),
		),
		col.New(4).Add(
			text.New("Property", props.Text{Style: fontstyle.Bold}),
			text.New(property[0], props.Text{Top: 5}),
			text.New(property[1], props.Text{Top: 9}),
			text.New(property[2]+" / unit "+detail.UnitNumber, props.Text{Top: 13}),
		),
	)

	m.AddRow(10,
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Previous", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Current", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	m.AddRow(8,
		text.NewCol(4, "Rent", props.Text{Size: 9}),
		col.New(2),
		col.New(2),
		col.New(2),
		text.NewCol(2, money(detail.Rent, opts.CurrencyLabel), props.Text{Size: 9, Align: align.Right}),
	)
	for _, line := range detail.Utilities {
		m.AddRow(8,
			text.NewCol(4, lineDescription(line), props.Text{Size: 9}),
			text.NewCol(2, optional(line.PreviousReading), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, optional(line.CurrentReading), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, lineRate(line), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(line.Cost, opts.CurrencyLabel), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Utilities", props.Text{Size: 9}),
		text.NewCol(2, money(detail.Utility, opts.CurrencyLabel), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, money(detail.Total, opts.CurrencyLabel), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func partyLines(p *invoicedomain.Party) []string {
	if p == nil {
		return []string{"", "", ""}
	}
	return []string{p.Name, p.Email, p.Phone}
}

func lineDescription(line invoicedomain.UtilityLine) string {
	name := line.UtilityName
	if name == "" {
		name = line.UtilityKind
	}
	if line.Usage != nil {
		return fmt.Sprintf("%s (%s units)", name, line.Usage.String())
	}
	return name
}

func lineRate(line invoicedomain.UtilityLine) string {
	if line.UnitRate != nil {
		return line.UnitRate.String() + "/unit"
	}
	if line.FixedRate != nil {
		return "fixed"
	}
	return ""
}

func optional(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func money(v decimal.Decimal, label string) string {
	if label == "" {
		return v.StringFixed(2)
	}
	return label + " " + v.StringFixed(2)
}
