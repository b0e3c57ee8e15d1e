package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/services"
)

func (s *Server) shoppingRoutes(r *mux.Router) {
	r.HandleFunc("/categories", s.handleListShoppingCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", s.handleCreateShoppingCategory).Methods(http.MethodPost)
	r.HandleFunc("/categories/{id}", s.handleUpdateShoppingCategory).Methods(http.MethodPut)
	r.HandleFunc("/categories/{id}", s.handleDeleteShoppingCategory).Methods(http.MethodDelete)

	r.HandleFunc("/products/grouped", s.handleGroupedProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", s.handleCreateProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", s.handleUpdateProduct).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", s.handleDeleteProduct).Methods(http.MethodDelete)

	r.HandleFunc("/lists", s.handleListLists).Methods(http.MethodGet)
	r.HandleFunc("/lists", s.handleCreateList).Methods(http.MethodPost)
	r.HandleFunc("/lists/{id}", s.handleGetList).Methods(http.MethodGet)
	r.HandleFunc("/lists/{id}", s.handleReplaceList).Methods(http.MethodPut)
	r.HandleFunc("/lists/{id}", s.handleDeleteList).Methods(http.MethodDelete)
	r.HandleFunc("/lists/{id}/items", s.handleAddItems).Methods(http.MethodPost)
	r.HandleFunc("/lists/{id}/items/{itemId}", s.handleUpdateItem).Methods(http.MethodPut)
	r.HandleFunc("/lists/{id}/items/{itemId}", s.handleDeleteItem).Methods(http.MethodDelete)
	r.HandleFunc("/lists/{id}/complete", s.handleCompleteList).Methods(http.MethodPost)
}

// Catalog

func (s *Server) handleListShoppingCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.shopping.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(cats))
}

func (s *Server) handleCreateShoppingCategory(w http.ResponseWriter, r *http.Request) {
	var c core.ShoppingCategory
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.Name = sanitizeInput(c.Name)
	created, err := s.shopping.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateShoppingCategory(w http.ResponseWriter, r *http.Request) {
	var c core.ShoppingCategory
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.Name = sanitizeInput(c.Name)
	updated, err := s.shopping.UpdateCategory(r.Context(), mux.Vars(r)["id"], c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteShoppingCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.shopping.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.shopping.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(products))
}

func (s *Server) handleGroupedProducts(w http.ResponseWriter, r *http.Request) {
	groups, err := s.shopping.GroupedProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(groups))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p core.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.Name = sanitizeInput(p.Name)
	created, err := s.shopping.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p core.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.Name = sanitizeInput(p.Name)
	updated, err := s.shopping.UpdateProduct(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.shopping.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// Lists

type createListRequest struct {
	Name string `json:"name"`
	// Product IDs, one unit each.
	Items []string `json:"items"`
}

type replaceListRequest struct {
	Name  string          `json:"name"`
	Items []core.CartItem `json:"items"`
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.shopping.ListLists(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(lists))
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	l, err := s.shopping.GetList(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.shopping.CreateList(r.Context(), sanitizeInput(req.Name), req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleReplaceList(w http.ResponseWriter, r *http.Request) {
	var req replaceListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.shopping.ReplaceList(r.Context(), mux.Vars(r)["id"], sanitizeInput(req.Name), req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.shopping.DeleteList(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// handleAddItems accepts one item or an array and answers in the same shape
// with the created items.
func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	items, batch, err := decodeOneOrMany[services.NewItem](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.shopping.AddItems(r.Context(), mux.Vars(r)["id"], items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added := l.Items[len(l.Items)-len(items):]
	if batch {
		writeJSON(w, http.StatusCreated, added)
		return
	}
	writeJSON(w, http.StatusCreated, added[0])
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch services.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	l, err := s.shopping.UpdateItem(r.Context(), vars["id"], vars["itemId"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, item := range l.Items {
		if item.ID == vars["itemId"] {
			writeJSON(w, http.StatusOK, item)
			return
		}
	}
	writeError(w, r, services.ErrItemNotFound)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, err := s.shopping.DeleteItem(r.Context(), vars["id"], vars["itemId"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleCompleteList(w http.ResponseWriter, r *http.Request) {
	l, expense, err := s.shopping.CompleteList(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentShopping)
	if expense != nil {
		logger.InfoContext(r.Context(), "Shopping expense booked",
			log.FieldListID, l.ID,
			log.FieldTransactionID, expense.ID,
			log.FieldAmount, expense.Amount.StringFixed(2))
		w.Header().Set("Location", "/api/v1/financial/transactions/"+expense.ID)
	}
	writeJSON(w, http.StatusOK, l)
}
