// Package pdf genera el comprobante imprimible de un movimiento de inventario.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Bodega (código + nombre)  │  Tipo + Referencia     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ESTADO: Draft / Posted / Cancelled + usuario y fecha        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Producto | Unidad | Cantidad                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL de unidades                                           │
//	│  FOOTER: QR con el ID del movimiento                         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

const (
	timeLayout = "02/01/2006 15:04 UTC"
	// missing reemplaza datos ausentes; la fuente base solo cubre Latin-1.
	missing = "-"
)

var kindTitles = map[string]string{
	"IN":         "ENTRADA DE INVENTARIO",
	"OUT":        "SALIDA DE INVENTARIO",
	"ADJUSTMENT": "AJUSTE DE INVENTARIO",
}

// ── Renderer ──────────────────────────────────────────────────────────────────

// MarotoVoucherRenderer implementa inventory.VoucherRenderer usando Maroto v2.
type MarotoVoucherRenderer struct{}

// NewMarotoVoucherRenderer construye el generador.
func NewMarotoVoucherRenderer() *MarotoVoucherRenderer { return &MarotoVoucherRenderer{} }

// RenderMovementVoucher genera el PDF y devuelve sus bytes.
func (g *MarotoVoucherRenderer) RenderMovementVoucher(_ context.Context, v *dto.MovementVoucher) ([]byte, error) {
	if v == nil || v.Movement == nil {
		return nil, fmt.Errorf("pdf: comprobante sin movimiento")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de movimiento "+v.Movement.ReferenceNo, true).
		WithAuthor(nonEmpty(v.Movement.CreatedBy, "system"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(v))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(statusRow(v.Movement))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(v.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(v))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(v.Movement))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: bodega (izq) y tipo + referencia (der).
func headerRow(v *dto.MovementVoucher) core.Row {
	title, ok := kindTitles[v.Movement.Kind]
	if !ok {
		title = "MOVIMIENTO " + v.Movement.Kind
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(v.WarehouseName, v.Movement.WarehouseID), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Bodega: "+nonEmpty(v.WarehouseCode, missing), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(v.Movement.ReferenceNo, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Creado: "+v.Movement.CreatedAt.UTC().Format(timeLayout), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// statusRow: estado y quién lo dejó así.
func statusRow(mv *dto.MovementResponse) core.Row {
	detail := "Borrador: no afecta saldos"
	color := colorGray
	switch {
	case mv.CancelledAt != nil:
		detail = fmt.Sprintf("Anulado por %s el %s", mv.CancelledBy, mv.CancelledAt.UTC().Format(timeLayout))
		color = colorAlert
	case mv.PostedAt != nil:
		detail = fmt.Sprintf("Posteado por %s el %s", mv.PostedBy, mv.PostedAt.UTC().Format(timeLayout))
		color = colorPrimary
	}
	components := []core.Component{
		text.New("ESTADO: "+mv.Status, props.Text{Style: fontstyle.Bold, Size: 9, Color: color, Top: 1}),
		text.New(detail, props.Text{Size: 8, Top: 6, Color: colorGray}),
	}
	if mv.Notes != nil && *mv.Notes != "" {
		components = append(components, text.New("Notas: "+*mv.Notes, props.Text{Size: 8, Top: 11, Color: colorGray}))
	}
	return row.New(16).Add(col.New(12).Add(components...))
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 3, align.Left),
		h("Producto", 5, align.Left),
		h("Unidad", 1, align.Center),
		h("Cantidad", 3, align.Right),
	)
}

// tableDetailRows: una fila por línea activa.
func tableDetailRows(lines []dto.VoucherLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(3).Add(text.New(nonEmpty(l.SKU, l.ProductID), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(5).Add(text.New(nonEmpty(l.Name, missing), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(nonEmpty(l.UnitMeasure, missing), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(l.Quantity.String(), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalRow(v *dto.MovementVoucher) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New(fmt.Sprintf("TOTAL (%d líneas):", len(v.Lines)), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New(v.TotalQuantity.String(), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

// footerRow: QR con el ID para ubicar el movimiento en la API.
func footerRow(mv *dto.MovementResponse) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(mv.ID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("ID del movimiento", props.Text{Style: fontstyle.Bold, Size: 8, Top: 4, Left: 3}),
			text.New(mv.ID, props.Text{Size: 8, Top: 10, Left: 3, Color: colorGray}),
			text.New("Los saldos solo cambian al postear; la anulación revierte el posteo completo.", props.Text{
				Size: 7, Top: 20, Left: 3, Color: colorGray,
			}),
		),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
