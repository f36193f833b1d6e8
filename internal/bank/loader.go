package bank

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/rccm-study/examcore/internal/logger"
)

var (
	ErrFileNotFound       = errors.New("question file not found")
	ErrAllEncodingsFailed = errors.New("question file unreadable in any known encoding")
	ErrMissingColumns     = errors.New("question file is missing required columns")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// requiredColumns is the minimum header contract shared by 4-1.csv and the
// per-year 4-2 files. explanation and year are optional.
var requiredColumns = []string{
	"id", "category", "question",
	"option_a", "option_b", "option_c", "option_d",
	"correct_answer",
}

// Row is one CSV record keyed by header name.
type Row map[string]string

// FileResult is the outcome of loading a single question file. Skipped counts
// malformed rows that were dropped; callers use it for data-quality auditing.
type FileResult struct {
	Path     string
	Encoding string
	Rows     []Row
	Skipped  int
}

// The historical files span over a decade of exports from different Windows
// and Unix tools, so decoding tries each candidate in priority order and
// stops at the first one that decodes cleanly.
var fileEncodings = []struct {
	name string
	enc  encoding.Encoding // nil means plain UTF-8
}{
	{"utf-8-sig", nil},
	{"utf-8", nil},
	{"shift_jis", japanese.ShiftJIS},
	{"euc-jp", japanese.EUCJP},
	{"iso-2022-jp", japanese.ISO2022JP},
}

// LoadFile reads one question-bank CSV, trying encodings in priority order.
// Malformed rows (wrong field count, unparsable quoting) are skipped and
// counted, never fatal; a file that no encoding can decode fails with
// ErrAllEncodingsFailed.
func LoadFile(path string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	text, encName, err := decodeAny(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAllEncodingsFailed, path)
	}
	logger.Debug("decoded %s as %s", path, encName)

	res := &FileResult{Path: path, Encoding: encName}
	if err := parseRows(text, res); err != nil {
		return nil, err
	}
	if res.Skipped > 0 {
		logger.Warn("%s: skipped %d malformed rows", path, res.Skipped)
	}
	return res, nil
}

func decodeAny(data []byte) (string, string, error) {
	for _, fe := range fileEncodings {
		switch fe.name {
		case "utf-8-sig":
			if !bytes.HasPrefix(data, utf8BOM) {
				continue
			}
			body := bytes.TrimPrefix(data, utf8BOM)
			if utf8.Valid(body) {
				return string(body), fe.name, nil
			}
		case "utf-8":
			if utf8.Valid(data) {
				return string(data), fe.name, nil
			}
		default:
			decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), fe.enc.NewDecoder()))
			if err != nil {
				continue
			}
			// The x/text decoders substitute U+FFFD instead of failing, so a
			// replacement rune in the output means this was the wrong table.
			if bytes.ContainsRune(decoded, utf8.RuneError) {
				continue
			}
			return string(decoded), fe.name, nil
		}
	}
	return "", "", ErrAllEncodingsFailed
}

func parseRows(text string, res *FileResult) error {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // row shape is validated manually so bad rows skip
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("%w: no header row", ErrMissingColumns)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\uFEFF"))
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}
		if len(record) != len(header) {
			res.Skipped++
			continue
		}
		row := make(Row, len(header))
		for i, name := range header {
			row[name] = strings.TrimSpace(record[i])
		}
		res.Rows = append(res.Rows, row)
	}
	return nil
}
