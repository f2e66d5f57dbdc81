// Package export writes the validated address set and the error set to
// their output files. Exporters are stateless transformations of the
// already-validated in-memory data.
package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KaiqueMeireles/case-data-engineer/pkg/transform"
)

// addressOut is the serialized shape shared by the JSON and XML
// exporters, matching the storage column names.
type addressOut struct {
	XMLName      xml.Name `json:"-" xml:"address"`
	Cep          string   `json:"cep" xml:"cep"`
	Street       string   `json:"street" xml:"street"`
	Complement   string   `json:"complement" xml:"complement"`
	Unit         string   `json:"unit" xml:"unit"`
	Neighborhood string   `json:"neighborhood" xml:"neighborhood"`
	City         string   `json:"city" xml:"city"`
	StateCode    string   `json:"state_code" xml:"state_code"`
	StateName    string   `json:"state_name" xml:"state_name"`
	Region       string   `json:"region" xml:"region"`
	IBGE         string   `json:"ibge" xml:"ibge"`
	GIA          string   `json:"gia" xml:"gia"`
	AreaCode     string   `json:"area_code" xml:"area_code"`
	SIAFI        string   `json:"siafi" xml:"siafi"`
}

// addressesOut is the XML document root.
type addressesOut struct {
	XMLName   xml.Name     `xml:"addresses"`
	Addresses []addressOut `xml:"address"`
}

func toOut(records []transform.Record) []addressOut {
	out := make([]addressOut, 0, len(records))
	for _, rec := range records {
		out = append(out, addressOut{
			Cep:          rec.Cep,
			Street:       rec.Street,
			Complement:   rec.Complement,
			Unit:         rec.Unit,
			Neighborhood: rec.Neighborhood,
			City:         rec.City,
			StateCode:    rec.StateCode,
			StateName:    rec.StateName,
			Region:       rec.Region,
			IBGE:         rec.IBGE,
			GIA:          rec.GIA,
			AreaCode:     rec.AreaCode,
			SIAFI:        rec.SIAFI,
		})
	}
	return out
}

// WriteJSON exports the validated set as a JSON array, replacing any
// previous file. An empty set skips the write.
func WriteJSON(path string, records []transform.Record) error {
	if len(records) == 0 {
		log.Info().Str("path", path).Msg("No validated records, skipping JSON export")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json output: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toOut(records)); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}

	log.Info().Int("records", len(records)).Str("path", path).Msg("JSON export complete")
	return nil
}

// WriteXML exports the validated set as an XML document, replacing any
// previous file. An empty set skips the write.
func WriteXML(path string, records []transform.Record) error {
	if len(records) == 0 {
		log.Info().Str("path", path).Msg("No validated records, skipping XML export")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create xml output: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}

	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(addressesOut{Addresses: toOut(records)}); err != nil {
		return fmt.Errorf("encode xml output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush xml output: %w", err)
	}

	log.Info().Int("records", len(records)).Str("path", path).Msg("XML export complete")
	return nil
}

// WriteErrorsCSV exports the error set as a delimited file with columns
// cep, message, category, timestamp. An empty set skips the write.
func WriteErrorsCSV(path string, errs []transform.ErrorRecord) error {
	if len(errs) == 0 {
		log.Info().Str("path", path).Msg("No error records, skipping CSV export")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create error csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"cep", "message", "category", "timestamp"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range errs {
		row := []string{e.Cep, e.Message, string(e.Category), e.Timestamp.Format(time.RFC3339)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush error csv: %w", err)
	}

	log.Info().Int("records", len(errs)).Str("path", path).Msg("Error CSV export complete")
	return nil
}
