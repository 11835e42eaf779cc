package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
	"trentora-system/internal/middleware"
	"trentora-system/internal/utils"
)

var exportHeader = []string{"Order ID", "Date", "Customer", "Status", "Total", "Items"}

// BuildOrderExportRows renders orders into export rows. Items are
// joined as "name × qty" pairs, matching the back-office CSV layout.
func BuildOrderExportRows(orderRows []models.Order, emails map[int64]string) [][]string {
	rows := make([][]string, 0, len(orderRows)+1)
	rows = append(rows, exportHeader)

	for _, order := range orderRows {
		items := make([]string, 0, len(order.OrderItems))
		for _, item := range order.OrderItems {
			name := fmt.Sprintf("#%d", item.ProductID)
			if item.Product != nil {
				name = item.Product.ProductName
			}
			items = append(items, fmt.Sprintf("%s × %d", name, item.Quantity))
		}

		rows = append(rows, []string{
			strconv.FormatInt(order.ID, 10),
			order.CreatedAt.Format("2006-01-02 15:04:05"),
			emails[order.UserID],
			order.Status,
			order.Total,
			strings.Join(items, ", "),
		})
	}
	return rows
}

func (h *OrderHandler) exportOrders(c *gin.Context, companyID int64) {
	ctx := c.Request.Context()

	from, to, err := DateRangeFromQuery(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Dates must be in YYYY-MM-DD format"))
		return
	}

	userIDs, err := h.companyUserIDs(c, companyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Company not found"))
		} else {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Export failed"))
		}
		return
	}

	tx := h.db.WithContext(ctx).
		Preload("OrderItems").
		Preload("OrderItems.Product").
		Where("user_id IN ?", userIDs)
	if from != nil {
		tx = tx.Where("created_at >= ?", *from)
	}
	if to != nil {
		tx = tx.Where("created_at <= ?", *to)
	}

	var orderRows []models.Order
	if err := tx.Order("created_at desc").Find(&orderRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Export failed"))
		return
	}

	emails := make(map[int64]string, len(userIDs))
	var users []models.User
	if err := h.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err == nil {
		for _, u := range users {
			emails[u.ID] = u.Email
		}
	}

	rows := BuildOrderExportRows(orderRows, emails)
	filename := fmt.Sprintf("company-orders-%d-%s", companyID, time.Now().Format("2006-01-02"))

	if c.DefaultQuery("format", "csv") == "xlsx" {
		h.writeXLSX(c, filename, rows)
		return
	}
	h.writeCSV(c, filename, rows)
}

func (h *OrderHandler) writeCSV(c *gin.Context, filename string, rows [][]string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))

	w := csv.NewWriter(c.Writer)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			middleware.GetLogger(c).Error("CSV export write failed")
			return
		}
	}
	w.Flush()
}

func (h *OrderHandler) writeXLSX(c *gin.Context, filename string, rows [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Export failed"))
			return
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
	if err := f.Write(c.Writer); err != nil {
		middleware.GetLogger(c).Error("Spreadsheet export write failed")
	}
}

// ExportOrders exports the calling company admin's orders.
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	userID, _ := middleware.GetAuthUserID(c)

	var company models.Company
	if err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&company).Error; err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Company not found."))
		return
	}
	h.exportOrders(c, company.ID)
}

// ExportCompanyOrdersAdmin exports any company's orders (back office).
func (h *OrderHandler) ExportCompanyOrdersAdmin(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid company ID"))
		return
	}
	h.exportOrders(c, companyID)
}

// RunBackfill triggers the ledger reconciliation from the back office.
func (h *OrderHandler) RunBackfill(c *gin.Context) {
	force := c.Query("force") == "true"
	inserted, err := h.RefreshCompanyOrders(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Backfill failed"))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Backfill completed", gin.H{"orders_added": inserted}))
}
