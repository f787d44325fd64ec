package inventory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/stock"
)

const maxImportRows = 2000

var (
	trailingQuantity = regexp.MustCompile(`\s+[\d.,]+\s*(?:kg|gr|g|lt|l|ml|pcs)\s*$`)
	numericOrUnit    = regexp.MustCompile(`^[\d.,]+\s*(?:kg|gr|g|lt|l|ml|pcs)?$`)
)

var accentFold = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"á", "a", "à", "a", "â", "a", "é", "e", "è", "e", "ê", "e",
	"í", "i", "î", "i", "ó", "o", "ô", "o", "ú", "u", "ñ", "n",
)

// normalizeName folds case and accents and drops pack sizes such as "1KG" or "500 ml", so
// a supplier sheet line matches the item it restocks.
func normalizeName(s string) string {
	n := accentFold.Replace(strings.ToLower(strings.TrimSpace(s)))
	n = trailingQuantity.ReplaceAllString(n, "")
	words := strings.Fields(n)
	kept := words[:0]
	for _, w := range words {
		if numericOrUnit.MatchString(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

type importLine struct {
	Row      int
	Key      string
	Quantity float64
	UnitCost *decimal.Decimal
}

type ImportResult struct {
	Applied   int                    `json:"applied"`
	Movements []models.StockMovement `json:"movements"`
	Unmatched []string               `json:"unmatched"`
	Rejected  []string               `json:"rejected"`
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	for _, h := range []string{"ITEM", "SKU", "NAME", "PRODUCT"} {
		if strings.Contains(first, h) {
			return true
		}
	}
	return false
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

// parseImportRows reads "item or SKU, quantity[, unit cost]" rows. Blank rows are skipped and
// malformed ones are reported by spreadsheet row number.
func parseImportRows(rows [][]string) ([]importLine, []string) {
	var lines []importLine
	var rejected []string
	start := 0
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		start = 1
	}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		n := i + 1
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			rejected = append(rejected, fmt.Sprintf("row %d: missing quantity", n))
			continue
		}
		qty, err := parseAmount(row[1])
		if err != nil || qty <= 0 {
			rejected = append(rejected, fmt.Sprintf("row %d: invalid quantity %q", n, row[1]))
			continue
		}
		line := importLine{Row: n, Key: strings.TrimSpace(row[0]), Quantity: qty}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			cost, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row[2]), ",", "."))
			if err != nil || cost.IsNegative() {
				rejected = append(rejected, fmt.Sprintf("row %d: invalid unit cost %q", n, row[2]))
				continue
			}
			cost = cost.Round(2)
			line.UnitCost = &cost
		}
		lines = append(lines, line)
	}
	return lines, rejected
}

// matchItems resolves each line to an item by SKU first, then by normalized name.
func matchItems(lines []importLine, items []models.InventoryItem) (map[int]uint, []string) {
	bySKU := make(map[string]uint, len(items))
	byName := make(map[string]uint, len(items))
	for _, it := range items {
		bySKU[strings.ToUpper(it.SKU)] = it.ID
		byName[normalizeName(it.Name)] = it.ID
	}
	matched := make(map[int]uint, len(lines))
	var unmatched []string
	for _, l := range lines {
		if id, ok := bySKU[strings.ToUpper(l.Key)]; ok {
			matched[l.Row] = id
			continue
		}
		if id, ok := byName[normalizeName(l.Key)]; ok {
			matched[l.Row] = id
			continue
		}
		unmatched = append(unmatched, l.Key)
	}
	return matched, unmatched
}

// POST /inventory/import (multipart "file", optional "reference") books a supplier delivery
// sheet as purchase movements in one transaction.
func ImportStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return apperr.Validation("file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return apperr.Validation("only .xlsx files are accepted")
		}
		file, err := fh.Open()
		if err != nil {
			return apperr.Wrap(err, "open upload")
		}
		defer file.Close()

		wb, err := excelize.OpenReader(file)
		if err != nil {
			return apperr.Validationf("unreadable workbook: %v", err)
		}
		defer wb.Close()

		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return apperr.Validation("workbook has no sheets")
		}
		rows, err := wb.GetRows(sheets[0])
		if err != nil {
			return apperr.Validationf("unreadable sheet: %v", err)
		}
		if len(rows) > maxImportRows {
			return apperr.Validationf("sheet exceeds %d rows", maxImportRows)
		}

		lines, rejected := parseImportRows(rows)
		if len(lines) == 0 {
			return apperr.Validation("no stock lines found")
		}

		ctx := c.UserContext()
		var items []models.InventoryItem
		if err := database.DB.WithContext(ctx).Where("is_active = ?", true).Find(&items).Error; err != nil {
			return apperr.Wrap(err, "load inventory")
		}
		matched, unmatched := matchItems(lines, items)
		if len(matched) == 0 {
			return apperr.Validation("no rows matched an active inventory item")
		}

		reference := strings.TrimSpace(c.FormValue("reference"))
		if reference == "" {
			reference = "import"
		}
		if len(reference) > 50 {
			reference = reference[:50]
		}

		uid, uname := auth.ActorOf(c)
		result := ImportResult{Unmatched: unmatched, Rejected: rejected}
		err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, l := range lines {
				id, ok := matched[l.Row]
				if !ok {
					continue
				}
				ch := stock.Change{
					ItemID:    id,
					Type:      models.MovementPurchase,
					Quantity:  l.Quantity,
					UnitCost:  l.UnitCost,
					Reference: reference,
					Note:      fmt.Sprintf("%s row %d", fh.Filename, l.Row),
				}
				if uid != 0 {
					ch.PerformedBy = &uid
				}
				_, mv, err := stock.ApplyTx(ctx, tx, ch)
				if err != nil {
					return err
				}
				result.Movements = append(result.Movements, *mv)
			}
			return nil
		})
		if err != nil {
			return apperr.Wrap(err, "import stock")
		}
		result.Applied = len(result.Movements)

		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "inventory_import",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Imported %d stock lines from %s", result.Applied, fh.Filename),
			After:       fiber.Map{"reference": reference, "unmatched": unmatched, "rejected": rejected},
		})
		return c.Status(fiber.StatusCreated).JSON(result)
	}
}
