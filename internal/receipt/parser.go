package receipt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
)

const (
	UnknownMerchant = "Unknown Merchant"
	maxNameLength   = 64
)

var (
	// An amount at the end of a line, with cents: "12.50", "$1,234.00", "4.99 T".
	trailingAmountRe = regexp.MustCompile(`(?:\$|€|£|฿)?\s*(-?[0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})|-?[0-9]+\.[0-9]{2})\s*[A-Z]?\s*$`)
	leadingQtyRe     = regexp.MustCompile(`^(?:[0-9]+\s*[xX@]\s+|[0-9]+\s+)`)
	dateRes          = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`),
		regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-z]{3,})\.?\s+(\d{4})\b`),
	}

	subtotalRe = wordsRe("subtotal", "sub total", "sub-total")
	totalRe    = wordsRe("total", "amount due", "amount paid", "balance due")
	taxRe      = wordsRe("tax", "vat", "gst", "hst", "sales tax")
	tipRe      = wordsRe("tip", "gratuity", "service charge")
	skipRe     = wordsRe("change", "cash", "visa", "mastercard", "amex", "card", "tender", "payment", "discount", "savings", "items sold")
)

// Parse extracts a scan from OCR text. It never fails: unrecognized text yields a
// scan with ConfidenceLow so the user can complete the expense manually.
func Parse(text string) *models.ReceiptScan {
	lines := nonEmptyLines(text)
	scan := &models.ReceiptScan{
		Merchant:   UnknownMerchant,
		Items:      []models.ReceiptItem{},
		Confidence: models.ConfidenceLow,
	}
	if len(lines) == 0 {
		return scan
	}

	var total, tax, tip, subtotal *decimal.Decimal
	for _, line := range lines {
		amount, name, ok := trailingAmount(line)
		if !ok {
			continue
		}
		switch {
		case subtotalRe.MatchString(line):
			subtotal = &amount
		case taxRe.MatchString(line) && !totalRe.MatchString(line):
			tax = sum(tax, amount)
		case tipRe.MatchString(line):
			tip = sum(tip, amount)
		case totalRe.MatchString(line):
			// The last total line wins ("Total" before "Grand Total").
			total = &amount
		case skipRe.MatchString(line):
		default:
			if item, ok := lineItem(name, amount); ok {
				scan.Items = append(scan.Items, item)
			}
		}
	}

	scan.Merchant = guessMerchant(lines)
	scan.Date = guessDate(text)
	scan.Total = orZero(total)
	scan.Tax = orZero(tax)
	scan.Tip = orZero(tip)
	scan.Subtotal = orZero(subtotal)

	if subtotal == nil && total != nil {
		scan.Subtotal = scan.Total.Sub(scan.Tax).Sub(scan.Tip)
	}
	if total == nil && subtotal != nil {
		scan.Total = scan.Subtotal.Add(scan.Tax).Add(scan.Tip)
	}
	if scan.Total.IsPositive() {
		scan.Confidence = models.ConfidenceHigh
	}
	return scan
}

// ErrorScan is the scan returned when extraction fails.
func ErrorScan(err error) *models.ReceiptScan {
	return &models.ReceiptScan{
		Merchant:   "Unknown",
		Items:      []models.ReceiptItem{},
		Confidence: models.ConfidenceError,
		Error:      err.Error(),
	}
}

func trailingAmount(line string) (decimal.Decimal, string, bool) {
	loc := trailingAmountRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return decimal.Zero, "", false
	}
	raw := strings.ReplaceAll(line[loc[2]:loc[3]], ",", "")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "", false
	}
	return amount, strings.TrimSpace(line[:loc[0]]), true
}

func lineItem(name string, price decimal.Decimal) (models.ReceiptItem, bool) {
	name = strings.TrimSpace(leadingQtyRe.ReplaceAllString(name, ""))
	name = strings.Trim(name, ".:-*# ")
	if !price.IsPositive() || !hasLetters(name) {
		return models.ReceiptItem{}, false
	}
	return models.ReceiptItem{Name: truncate(name, maxNameLength), Price: price}, true
}

func guessMerchant(lines []string) string {
	for _, l := range lines {
		if totalRe.MatchString(l) || subtotalRe.MatchString(l) {
			continue
		}
		if _, _, ok := trailingAmount(l); ok {
			continue
		}
		if guessDate(l) != nil {
			continue
		}
		if hasLetters(l) {
			return truncate(l, maxNameLength)
		}
	}
	return UnknownMerchant
}

// guessDate returns the first date found, normalized to YYYY-MM-DD. Numeric dates
// with slashes or dashes are read month first.
func guessDate(text string) *string {
	for i, re := range dateRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var date string
		switch i {
		case 0:
			date = fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
		case 1, 2:
			date = fmt.Sprintf("%s-%s-%s", m[3], pad2(m[1]), pad2(m[2]))
		case 3:
			month := monthFromName(m[2])
			if month == "" {
				continue
			}
			date = fmt.Sprintf("%s-%s-%s", m[3], month, pad2(m[1]))
		}
		return &date
	}
	return nil
}

func sum(acc *decimal.Decimal, v decimal.Decimal) *decimal.Decimal {
	if acc == nil {
		return &v
	}
	s := acc.Add(v)
	return &s
}

func orZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return models.RoundCents(*v)
}

func wordsRe(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func nonEmptyLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.Join(strings.Fields(r), " ")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hasLetters(s string) bool {
	for _, r := range s {
		if ('A' <= r && r <= 'Z') || ('a' <= r && r <= 'z') || r > utf8.RuneSelf {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

var months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

func monthFromName(m string) string {
	m = strings.ToLower(m)
	for i, prefix := range months {
		if strings.HasPrefix(m, prefix) {
			return fmt.Sprintf("%02d", i+1)
		}
	}
	return ""
}
