package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/config"
	"github.com/safar/storefront-api/internal/database"
	"github.com/safar/storefront-api/internal/models"
	"github.com/safar/storefront-api/internal/store"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", handleCreateOrder(db))
	mux.HandleFunc("GET /orders", handleListOrders(db))
	mux.HandleFunc("GET /orders/{id}", handleGetOrder(db))
	mux.HandleFunc("POST /orders/{id}/proceed", handleProceedOrder(db))
	mux.HandleFunc("POST /orders/{id}/cancel", handleCancelOrder(db))

	mux.HandleFunc("POST /products", handleCreateProduct(db))
	mux.HandleFunc("GET /products", handleListProducts(db))
	mux.HandleFunc("GET /products/{id}", handleGetProduct(db))
	mux.HandleFunc("PUT /products/{id}", handleUpdateProduct(db))
	mux.HandleFunc("DELETE /products/{id}", handleDeleteProduct(db))
	mux.HandleFunc("PATCH /products/{id}/visibility", handleProductVisibility(db))
	mux.HandleFunc("PATCH /products/{id}/stock", handleProductStock(db))
	mux.HandleFunc("POST /products/{id}/images", handleAddProductImage(db))

	mux.HandleFunc("POST /users", handleCreateUser(db))
	mux.HandleFunc("GET /users", handleListUsers(db))
	mux.HandleFunc("GET /users/{id}", handleGetUser(db))
	mux.HandleFunc("PUT /users/{id}", handleUpdateUser(db))
	mux.HandleFunc("DELETE /users/{id}", handleDeleteUser(db))

	mux.HandleFunc("GET /notifications", handleListNotifications(db))
	mux.HandleFunc("GET /notifications/unread-count", handleUnreadCount(db))
	mux.HandleFunc("PATCH /notifications/{id}/read", handleMarkNotificationRead(db))

	mux.HandleFunc("GET /dashboard/summary", handleDashboardSummary(db))
	mux.HandleFunc("GET /dashboard/charts", handleDashboardCharts(db))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func handleCreateOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Identity comes from the auth layer in front of this service.
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		var req struct {
			Items []store.OrderItemRequest `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		order, err := store.CreateOrder(r.Context(), db, store.CreateOrderRequest{
			UserID: userID,
			Items:  req.Items,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, order)
	}
}

func handleListOrders(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := paginationParams(r)

		var status *models.OrderStatus
		if s := r.URL.Query().Get("status"); s != "" {
			parsed, err := models.ParseOrderStatus(s)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			status = &parsed
		}

		result, err := store.ListOrders(r.Context(), db, page, limit, status)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := store.GetOrder(r.Context(), db, r.PathValue("id"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleProceedOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := store.ProceedOrder(r.Context(), db, r.PathValue("id"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleCancelOrder(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := store.CancelOrder(r.Context(), db, r.PathValue("id"), store.DefaultRestockPolicy())
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleCreateProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name          string   `json:"name"`
			Description   string   `json:"description"`
			PurchasePrice float64  `json:"purchase_price"`
			SalePrice     float64  `json:"sale_price"`
			Stock         int      `json:"stock"`
			IsVisible     *bool    `json:"is_visible"`
			Images        []string `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		product, err := store.CreateProduct(r.Context(), db, store.CreateProductParams{
			Name:          req.Name,
			Description:   req.Description,
			PurchasePrice: decimal.NewFromFloat(req.PurchasePrice),
			SalePrice:     decimal.NewFromFloat(req.SalePrice),
			Stock:         req.Stock,
			IsVisible:     req.IsVisible,
			Images:        req.Images,
		})
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, product)
	}
}

func handleListProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := paginationParams(r)
		search := r.URL.Query().Get("search")

		var visible *bool
		if v := r.URL.Query().Get("visible"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid visible filter")
				return
			}
			visible = &parsed
		}

		// Only admins see unlisted products.
		if r.Header.Get("X-User-Role") != string(models.UserRoleAdmin) {
			t := true
			visible = &t
		}

		result, err := store.ListProducts(r.Context(), db, page, limit, search, visible)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := store.GetProduct(r.Context(), db, r.PathValue("id"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleUpdateProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name          *string  `json:"name"`
			Description   *string  `json:"description"`
			PurchasePrice *float64 `json:"purchase_price"`
			SalePrice     *float64 `json:"sale_price"`
			Stock         *int     `json:"stock"`
			IsVisible     *bool    `json:"is_visible"`
			Images        []string `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		params := store.UpdateProductParams{
			Name:        req.Name,
			Description: req.Description,
			Stock:       req.Stock,
			IsVisible:   req.IsVisible,
			Images:      req.Images,
		}
		if req.PurchasePrice != nil {
			price := decimal.NewFromFloat(*req.PurchasePrice)
			params.PurchasePrice = &price
		}
		if req.SalePrice != nil {
			price := decimal.NewFromFloat(*req.SalePrice)
			params.SalePrice = &price
		}

		product, err := store.UpdateProduct(r.Context(), db, r.PathValue("id"), params)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleDeleteProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteProduct(r.Context(), db, r.PathValue("id")); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleProductVisibility(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsVisible bool `json:"is_visible"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		product, err := store.UpdateProductVisibility(r.Context(), db, r.PathValue("id"), req.IsVisible)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleProductStock(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stock int `json:"stock"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		product, err := store.UpdateProductStock(r.Context(), db, r.PathValue("id"), req.Stock)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleAddProductImage(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		product, err := store.AddProductImage(r.Context(), db, r.PathValue("id"), req.Path)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleCreateUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		role := models.UserRoleUser
		if req.Role != "" {
			parsed, err := models.ParseUserRole(req.Role)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			role = parsed
		}

		user, err := store.CreateUser(r.Context(), db, req.Name, req.Email, role)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, user)
	}
}

func handleListUsers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := paginationParams(r)

		result, err := store.ListUsers(r.Context(), db, page, limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := store.GetUser(r.Context(), db, r.PathValue("id"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleUpdateUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     *string `json:"name"`
			Email    *string `json:"email"`
			Role     *string `json:"role"`
			IsActive *bool   `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		params := store.UpdateUserParams{
			Name:     req.Name,
			Email:    req.Email,
			IsActive: req.IsActive,
		}
		if req.Role != nil {
			role, err := models.ParseUserRole(*req.Role)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			params.Role = &role
		}

		user, err := store.UpdateUser(r.Context(), db, r.PathValue("id"), params)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleDeleteUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteUser(r.Context(), db, r.PathValue("id")); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListNotifications(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := paginationParams(r)

		var isRead *bool
		if v := r.URL.Query().Get("is_read"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid is_read filter")
				return
			}
			isRead = &parsed
		}

		result, err := store.ListNotifications(r.Context(), db, page, limit, isRead)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleUnreadCount(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := store.UnreadNotificationCount(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]int64{"unread": count})
	}
}

func handleMarkNotificationRead(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notification, err := store.MarkNotificationRead(r.Context(), db, r.PathValue("id"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, notification)
	}
}

func handleDashboardSummary(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := store.GetDashboardSummary(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, summary)
	}
}

func handleDashboardCharts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))

		points, err := store.GetDashboardCharts(r.Context(), db, days)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, points)
	}
}

func paginationParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

// respondStoreError translates the domain taxonomy to HTTP. Retryable
// database contention becomes 503 so clients know a retry may help.
func respondStoreError(w http.ResponseWriter, err error) {
	if kind, ok := apperr.KindOf(err); ok {
		switch kind {
		case apperr.KindValidation:
			respondError(w, http.StatusBadRequest, err.Error())
		case apperr.KindNotFound:
			respondError(w, http.StatusNotFound, err.Error())
		case apperr.KindConflict:
			respondError(w, http.StatusConflict, err.Error())
		}
		return
	}

	if database.IsRetryable(err) {
		respondError(w, http.StatusServiceUnavailable, "database busy, retry the request")
		return
	}

	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
