// Package menu serves categories and menu items with their variants, add-ons and recipes.
package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/validation"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=255"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

type PricedOption struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Price decimal.Decimal `json:"price"`
}

type IngredientRequest struct {
	InventoryItemID uint    `json:"inventoryItemId" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
}

type MenuItemRequest struct {
	CategoryID      uint                `json:"categoryId" validate:"required"`
	Name            string              `json:"name" validate:"required,max=150"`
	Description     string              `json:"description" validate:"omitempty,max=500"`
	Price           decimal.Decimal     `json:"price"`
	IsAvailable     *bool               `json:"isAvailable"`
	PreparationTime int                 `json:"preparationTime" validate:"omitempty,min=1,max=240"`
	Variants        []PricedOption      `json:"variants" validate:"omitempty,dive"`
	AddOns          []PricedOption      `json:"addOns" validate:"omitempty,dive"`
	Ingredients     []IngredientRequest `json:"ingredients" validate:"omitempty,dive"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" validate:"required"`
}

func paramID(c *fiber.Ctx, what string) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s id", what)
	}
	return uint(id), nil
}

// toMenuItem checks money fields and builds the item with its child rows.
func (r MenuItemRequest) toMenuItem() (models.MenuItem, error) {
	if r.Price.IsNegative() {
		return models.MenuItem{}, apperr.Validation("price cannot be negative")
	}
	item := models.MenuItem{
		CategoryID:      r.CategoryID,
		Name:            strings.TrimSpace(r.Name),
		Description:     strings.TrimSpace(r.Description),
		Price:           r.Price.Round(2),
		IsAvailable:     r.IsAvailable == nil || *r.IsAvailable,
		PreparationTime: r.PreparationTime,
	}
	if item.PreparationTime == 0 {
		item.PreparationTime = 15
	}

	seenVariant := make(map[string]bool)
	for _, v := range r.Variants {
		name := strings.TrimSpace(v.Name)
		if v.Price.IsNegative() {
			return models.MenuItem{}, apperr.Validationf("variant %s has a negative price", name)
		}
		if seenVariant[strings.ToLower(name)] {
			return models.MenuItem{}, apperr.Validationf("duplicate variant %s", name)
		}
		seenVariant[strings.ToLower(name)] = true
		item.Variants = append(item.Variants, models.MenuItemVariant{Name: name, Price: v.Price.Round(2)})
	}
	for _, a := range r.AddOns {
		if a.Price.IsNegative() {
			return models.MenuItem{}, apperr.Validationf("add-on %s has a negative price", a.Name)
		}
		item.AddOns = append(item.AddOns, models.MenuItemAddOn{Name: strings.TrimSpace(a.Name), Price: a.Price.Round(2)})
	}
	for _, ing := range r.Ingredients {
		item.Ingredients = append(item.Ingredients, models.MenuItemIngredient{InventoryItemID: ing.InventoryItemID, Quantity: ing.Quantity})
	}
	return item, nil
}

// checkReferences confirms the category and every recipe inventory item exist.
func checkReferences(tx *gorm.DB, item *models.MenuItem) error {
	var n int64
	if err := tx.Model(&models.Category{}).Where("id = ?", item.CategoryID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Validationf("category %d does not exist", item.CategoryID)
	}
	if len(item.Ingredients) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(item.Ingredients))
	unique := make(map[uint]bool)
	for _, ing := range item.Ingredients {
		if !unique[ing.InventoryItemID] {
			unique[ing.InventoryItemID] = true
			ids = append(ids, ing.InventoryItemID)
		}
	}
	if err := tx.Model(&models.InventoryItem{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(ids) {
		return apperr.Validation("recipe references an unknown inventory item")
	}
	return nil
}

func loadItem(tx *gorm.DB, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := tx.Preload("Category").Preload("Variants").Preload("AddOns").Preload("Ingredients").First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("menu item not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load menu item")
	}
	return &item, nil
}

// GET /menu/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).Order("sort_order ASC, name ASC")
		if c.Query("active") != "" {
			q = q.Where("is_active = ?", c.QueryBool("active"))
		}
		var cats []models.Category
		if err := q.Find(&cats).Error; err != nil {
			return apperr.Wrap(err, "list categories")
		}
		return c.JSON(cats)
	}
}

// POST /menu/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		cat := models.Category{
			Name:        strings.TrimSpace(body.Name),
			Description: strings.TrimSpace(body.Description),
			SortOrder:   body.SortOrder,
			IsActive:    body.IsActive == nil || *body.IsActive,
		}
		err := database.DB.WithContext(c.UserContext()).Create(&cat).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(fmt.Sprintf("category %s already exists", cat.Name))
		}
		if err != nil {
			return apperr.Wrap(err, "create category")
		}
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /menu/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "category")
		if err != nil {
			return err
		}
		var body CategoryRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var cat models.Category
		db := database.DB.WithContext(c.UserContext())
		if err := db.First(&cat, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("category not found")
			}
			return apperr.Wrap(err, "load category")
		}
		cat.Name = strings.TrimSpace(body.Name)
		cat.Description = strings.TrimSpace(body.Description)
		cat.SortOrder = body.SortOrder
		if body.IsActive != nil {
			cat.IsActive = *body.IsActive
		}
		err = db.Save(&cat).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(fmt.Sprintf("category %s already exists", cat.Name))
		}
		if err != nil {
			return apperr.Wrap(err, "update category")
		}
		return c.JSON(cat)
	}
}

// GET /menu/items?category=1&available=true&search=burger
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.WithContext(c.UserContext()).
			Preload("Category").Preload("Variants").Preload("AddOns").
			Order("name ASC")
		if c.Query("category") != "" {
			cat := c.QueryInt("category")
			if cat <= 0 {
				return apperr.Validation("invalid category")
			}
			q = q.Where("category_id = ?", cat)
		}
		if c.Query("available") != "" {
			q = q.Where("is_available = ?", c.QueryBool("available"))
		}
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			q = q.Where("name ILIKE ?", "%"+escapeLike(s)+"%")
		}

		var items []models.MenuItem
		if err := q.Find(&items).Error; err != nil {
			return apperr.Wrap(err, "list menu items")
		}
		return c.JSON(items)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GET /menu/items/:id
func GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "menu item")
		if err != nil {
			return err
		}
		item, err := loadItem(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /menu/items
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MenuItemRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		item, err := body.toMenuItem()
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := checkReferences(tx, &item); err != nil {
				return err
			}
			return tx.Create(&item).Error
		})
		if err != nil {
			return apperr.Wrap(err, "create menu item")
		}

		uid, uname := auth.ActorOf(c)
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "menu_item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Menu item %s created at %s", item.Name, item.Price.StringFixed(2)),
			After:       item,
		})
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /menu/items/:id replaces the item, its options and its recipe.
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "menu item")
		if err != nil {
			return err
		}
		var body MenuItemRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		next, err := body.toMenuItem()
		if err != nil {
			return err
		}

		var before *models.MenuItem
		var after *models.MenuItem
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			if before, err = loadItem(tx, id); err != nil {
				return err
			}
			if err := checkReferences(tx, &next); err != nil {
				return err
			}
			for _, child := range []any{&models.MenuItemVariant{}, &models.MenuItemAddOn{}, &models.MenuItemIngredient{}} {
				if err := tx.Where("menu_item_id = ?", id).Delete(child).Error; err != nil {
					return err
				}
			}

			next.ID = id
			next.CreatedAt = before.CreatedAt
			if err := tx.Omit("Variants", "AddOns", "Ingredients", "Category").Save(&next).Error; err != nil {
				return err
			}
			for i := range next.Variants {
				next.Variants[i].MenuItemID = id
			}
			for i := range next.AddOns {
				next.AddOns[i].MenuItemID = id
			}
			for i := range next.Ingredients {
				next.Ingredients[i].MenuItemID = id
			}
			if len(next.Variants) > 0 {
				if err := tx.Create(&next.Variants).Error; err != nil {
					return err
				}
			}
			if len(next.AddOns) > 0 {
				if err := tx.Create(&next.AddOns).Error; err != nil {
					return err
				}
			}
			if len(next.Ingredients) > 0 {
				if err := tx.Create(&next.Ingredients).Error; err != nil {
					return err
				}
			}
			after, err = loadItem(tx, id)
			return err
		})
		if err != nil {
			return apperr.Wrap(err, "update menu item")
		}

		uid, uname := auth.ActorOf(c)
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "menu_item",
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Menu item %s updated", after.Name),
			Before:      before,
			After:       after,
		})
		return c.JSON(after)
	}
}

// PATCH /menu/items/:id/availability
func SetAvailabilityHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "menu item")
		if err != nil {
			return err
		}
		var body availabilityRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())
		res := db.Model(&models.MenuItem{}).Where("id = ?", id).Update("is_available", *body.IsAvailable)
		if res.Error != nil {
			return apperr.Wrap(res.Error, "update availability")
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("menu item not found")
		}
		item, err := loadItem(db, id)
		if err != nil {
			return err
		}

		uid, uname := auth.ActorOf(c)
		audit.Record(audit.LogOptions{
			UserID:      uid,
			UserName:    uname,
			EntityType:  "menu_item",
			EntityID:    id,
			Action:      models.AuditActionStatus,
			Description: fmt.Sprintf("Menu item %s availability set to %t", item.Name, item.IsAvailable),
			After:       fiber.Map{"isAvailable": item.IsAvailable},
		})
		return c.JSON(item)
	}
}
