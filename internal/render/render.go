package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/emaland/spotinfer/internal/gpu"
	"github.com/emaland/spotinfer/internal/offer"
)

const (
	Table = "table"
	JSON  = "json"
	YAML  = "yaml"
)

// ValidateFormat reports whether format is one Offers and GPUTypes can write.
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case Table, JSON, YAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (supported: table, json, yaml)", format)
}

func Offers(w io.Writer, offers []offer.Offer, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if offers == nil {
		offers = []offer.Offer{}
	}
	switch strings.ToLower(format) {
	case JSON:
		return writeJSON(w, offers)
	case YAML:
		return writeYAML(w, offers)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE TYPE\tGPU\tVCPU\tRAM\tGPU RAM\tMODE\tPRICE\tSAVINGS\tLOCATION\tPROVIDER")
	for _, o := range offers {
		d := o.Details
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			dash(d.InstanceType),
			gpuColumn(o),
			intOrDash(d.VCPUs),
			gibOrDash(d.MemoryGB),
			gibOrDash(d.GPUMemoryGB),
			o.PricingMode,
			price(o),
			savings(o),
			dash(d.Location),
			dash(d.Provider),
		)
	}
	return tw.Flush()
}

func GPUTypes(w io.Writer, types []string, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if types == nil {
		types = []string{}
	}
	switch strings.ToLower(format) {
	case JSON:
		return writeJSON(w, types)
	case YAML:
		return writeYAML(w, types)
	}
	for _, t := range types {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func gpuColumn(o offer.Offer) string {
	if o.GPUType != "" {
		return gpu.Display(o.GPUType, o.Details.GPUCount)
	}
	return gpu.FormatDisplay(o.Details.GPUDescription, o.Details.GPUCount)
}

func price(o offer.Offer) string {
	cur := strings.ToUpper(o.Details.Currency)
	if cur == "" || cur == "USD" {
		return fmt.Sprintf("$%.4f/h", o.Price)
	}
	return fmt.Sprintf("%.4f %s/h", o.Price, cur)
}

func savings(o offer.Offer) string {
	pct, ok := o.Savings()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", pct)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

func gibOrDash(gb float64) string {
	if gb == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f GiB", gb)
}
