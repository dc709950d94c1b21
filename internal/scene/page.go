/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "encoding/json"

// Background is the page backdrop. Image is a URL or data URI.
type Background struct {
	Color    string `json:"color"`
	Image    string `json:"image"`
	Size     string `json:"size"`
	Position string `json:"position"`
}

// Size is a width/height pair in canvas pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is the fixed-size document surface.
type Page struct {
	Size
	Background Background
}

// DefaultPage is an A4 sheet at 96 dpi with a white background.
func DefaultPage() Page {
	return Page{
		Size:       Size{Width: 794, Height: 1123},
		Background: Background{Color: "#ffffff", Size: "cover", Position: "center"},
	}
}

// Columns toggles the columns of the line-items table.
type Columns struct {
	Description bool `json:"description"`
	Quantity    bool `json:"quantity"`
	Rate        bool `json:"rate"`
	Amount      bool `json:"amount"`
}

// TableStyles are the header and body cell fonts of the line-items table.
type TableStyles struct {
	HeaderTextColor  string  `json:"headerTextColor"`
	HeaderFontSize   float64 `json:"headerFontSize"`
	HeaderFontWeight string  `json:"headerFontWeight"`
	CellTextColor    string  `json:"cellTextColor"`
	CellFontSize     float64 `json:"cellFontSize"`
	CellFontWeight   string  `json:"cellFontWeight"`
}

// TableConfig applies to every table element of a template.
type TableConfig struct {
	Columns Columns     `json:"columns"`
	Styles  TableStyles `json:"styles"`
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		Columns: Columns{Description: true, Quantity: true, Rate: true, Amount: true},
		Styles: TableStyles{
			HeaderTextColor: "#000000", HeaderFontSize: 14, HeaderFontWeight: "bold",
			CellTextColor: "#333333", CellFontSize: 12, CellFontWeight: "normal",
		},
	}
}

// UnmarshalJSON decodes over the defaults so omitted keys keep them.
func (c *TableConfig) UnmarshalJSON(b []byte) error {
	type plain TableConfig
	v := plain(DefaultTableConfig())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = TableConfig(v)
	return nil
}

// LineItem is one billed row.
type LineItem struct {
	ID          int     `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// InvoiceData is the sample data tables and totals are rendered from.
type InvoiceData struct {
	Items   []LineItem `json:"items"`
	TaxRate float64    `json:"taxRate"`
}

// SampleInvoice returns the two fixed line items shown in the editor.
func SampleInvoice() InvoiceData {
	return InvoiceData{
		Items: []LineItem{
			{ID: 1, Description: "Service Description", Quantity: 1, Rate: 100, Amount: 100},
			{ID: 2, Description: "Additional Service", Quantity: 2, Rate: 50, Amount: 100},
		},
		TaxRate: 0.10,
	}
}

func (d InvoiceData) Subtotal() float64 {
	var s float64
	for _, it := range d.Items {
		s += it.Amount
	}
	return s
}

func (d InvoiceData) Tax() float64   { return d.Subtotal() * d.TaxRate }
func (d InvoiceData) Total() float64 { return d.Subtotal() + d.Tax() }
