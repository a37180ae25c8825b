package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
)

const (
	kindWarehouses = "warehouses"
	kindProducts   = "products"
)

var requiredColumns = map[string][]string{
	kindWarehouses: {"id", "code", "name"},
	kindProducts:   {"id", "sku", "name"},
}

// seedResult resumen de la carga.
type seedResult struct {
	Upserted int
	Skipped  int // filas vacías
}

// seed lee el CSV y hace upsert fila a fila. Se detiene en el primer error con el número de línea.
func seed(ctx context.Context, uc *catalog.CatalogUseCase, kind string, raw []byte) (seedResult, error) {
	var res seedResult
	required, ok := requiredColumns[kind]
	if !ok {
		return res, fmt.Errorf("tipo %q inválido (warehouses, products)", kind)
	}

	r := csv.NewReader(decode(raw))
	r.Comma = detectDelimiter(raw)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return res, fmt.Errorf("leer cabecera: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return res, fmt.Errorf("falta la columna %q", c)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("leer CSV: %w", err)
		}
		line, _ := r.FieldPos(0)
		if blank(rec) {
			res.Skipped++
			continue
		}
		active, err := parseActive(field(rec, "active"))
		if err != nil {
			return res, fmt.Errorf("línea %d: %w", line, err)
		}

		switch kind {
		case kindWarehouses:
			_, err = uc.UpsertWarehouse(ctx, field(rec, "id"), dto.UpsertWarehouseRequest{
				Code:    field(rec, "code"),
				Name:    field(rec, "name"),
				Address: field(rec, "address"),
				Active:  active,
			})
		case kindProducts:
			_, err = uc.UpsertProduct(ctx, field(rec, "id"), dto.UpsertProductRequest{
				SKU:         field(rec, "sku"),
				Name:        field(rec, "name"),
				UnitMeasure: field(rec, "unit_measure"),
				Active:      active,
			})
		}
		if err != nil {
			return res, fmt.Errorf("línea %d: %w", line, err)
		}
		res.Upserted++
	}
}

// decode devuelve el contenido como UTF-8; lo que no es UTF-8 válido se lee como ISO-8859-1.
func decode(raw []byte) io.Reader {
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}
	return transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder())
}

// detectDelimiter usa ";" si la cabecera lo trae (export típico de Excel en es-CO).
func detectDelimiter(raw []byte) rune {
	first, _, _ := bytes.Cut(raw, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func parseActive(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	switch strings.ToLower(s) {
	case "si", "sí", "s", "yes", "y":
		v := true
		return &v, nil
	case "no", "n":
		v := false
		return &v, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("active inválido %q", s)
	}
	return &v, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
