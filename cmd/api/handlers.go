package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/api"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/middleware"
)

// services bundles the application services the HTTP handlers call
type services struct {
	transactions *application.TransactionService
	verification *application.VerificationService
	overdue      *application.OverdueService
	packs        *application.PackService
	lifecycle    *application.LifecycleService
	catalog      *application.CatalogService
	audit        *application.AuditService
}

// operatorOr prefers the value named in the body over the X-Operator header
func operatorOr(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return middleware.Operator(c)
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.ErrValidation("limit must be a non-negative integer")
	}
	return limit, nil
}

// Transactions

type itemLineRequest struct {
	InstrumentID string   `json:"instrumentId" binding:"required"`
	Count        int      `json:"count" binding:"gte=0"`
	BrokenCount  int      `json:"brokenCount" binding:"gte=0"`
	MissingCount int      `json:"missingCount" binding:"gte=0"`
	AssetIDs     []string `json:"assetIds"`
	Notes        string   `json:"notes"`
}

type setLineRequest struct {
	SetID        string `json:"setId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"gte=0"`
	BrokenCount  int    `json:"brokenCount" binding:"gte=0"`
	MissingCount int    `json:"missingCount" binding:"gte=0"`
	Notes        string `json:"notes"`
}

type createTransactionRequest struct {
	ID                 string            `json:"id"`
	Type               string            `json:"type" binding:"required,transaction_type"`
	UnitID             string            `json:"unitId" binding:"required,cssd_unit"`
	Items              []itemLineRequest `json:"items" binding:"dive"`
	SetItems           []setLineRequest  `json:"setItems" binding:"dive"`
	PackIDs            []string          `json:"packIds"`
	ExpectedReturnDate *time.Time        `json:"expectedReturnDate"`
	AutoValidate       bool              `json:"autoValidate"`
	CreatedBy          string            `json:"createdBy"`
}

func (s *services) createTransaction(c *gin.Context) error {
	var req createTransactionRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	cmd := application.CreateTransactionCommand{
		ID:                 req.ID,
		Type:               req.Type,
		UnitID:             req.UnitID,
		PackIDs:            req.PackIDs,
		ExpectedReturnDate: req.ExpectedReturnDate,
		AutoValidate:       req.AutoValidate,
		CreatedBy:          operatorOr(c, req.CreatedBy),
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, application.TransactionItemInput{
			InstrumentID: it.InstrumentID,
			Count:        it.Count,
			BrokenCount:  it.BrokenCount,
			MissingCount: it.MissingCount,
			AssetIDs:     it.AssetIDs,
			Notes:        it.Notes,
		})
	}
	for _, it := range req.SetItems {
		cmd.SetItems = append(cmd.SetItems, application.TransactionSetInput{
			SetID:        it.SetID,
			Quantity:     it.Quantity,
			BrokenCount:  it.BrokenCount,
			MissingCount: it.MissingCount,
			Notes:        it.Notes,
		})
	}

	tx, err := s.transactions.CreateTransaction(c.Request.Context(), cmd)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, tx)
	return nil
}

func (s *services) getTransaction(c *gin.Context) error {
	tx, err := s.transactions.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, tx)
	return nil
}

type listTransactionsQuery struct {
	UnitID string `form:"unitId"`
	Type   string `form:"type" binding:"omitempty,transaction_type"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
}

func (s *services) listTransactions(c *gin.Context) error {
	var q listTransactionsQuery
	if appErr := api.BindQueryAndValidate(c, &q); appErr != nil {
		return appErr
	}
	page := api.ParsePagination(c)

	list, err := s.transactions.ListTransactions(c.Request.Context(), application.ListTransactionsQuery{
		UnitID:   q.UnitID,
		Type:     q.Type,
		Status:   q.Status,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, api.NewPageResponse(list.Transactions, list.Page, list.PageSize, list.Total))
	return nil
}

type verifyTransactionRequest struct {
	ItemVerifications []domain.ItemVerification `json:"itemVerifications"`
	SetVerifications  []domain.SetVerification  `json:"setVerifications"`
	Notes             string                    `json:"notes"`
	ValidatedBy       string                    `json:"validatedBy"`
}

func (s *services) verifyTransaction(c *gin.Context) error {
	var req verifyTransactionRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	result, err := s.verification.ValidateTransactionWithVerification(c.Request.Context(), application.ValidateTransactionCommand{
		TransactionID:     c.Param("id"),
		ItemVerifications: req.ItemVerifications,
		SetVerifications:  req.SetVerifications,
		Notes:             req.Notes,
		ValidatedBy:       operatorOr(c, req.ValidatedBy),
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, result)
	return nil
}

type validateTransactionRequest struct {
	ValidatedBy string `json:"validatedBy"`
}

// validateTransaction accepts a pending collection as recorded. The body is optional.
func (s *services) validateTransaction(c *gin.Context) error {
	var req validateTransactionRequest
	if c.Request.ContentLength > 0 {
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			return appErr
		}
	}

	result, err := s.verification.ValidateTransaction(c.Request.Context(), c.Param("id"), operatorOr(c, req.ValidatedBy))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, result)
	return nil
}

func (s *services) transactionDiscrepancies(c *gin.Context) error {
	reports, err := s.verification.GetDiscrepancies(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, reports)
	return nil
}

func (s *services) recentDiscrepancies(c *gin.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	reports, err := s.verification.ListRecentDiscrepancies(c.Request.Context(), limit)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, reports)
	return nil
}

// Sets

type setAvailabilityQuery struct {
	Quantity int    `form:"quantity" binding:"omitempty,gte=1"`
	Type     string `form:"type" binding:"omitempty,transaction_type"`
	UnitID   string `form:"unitId"`
}

func (s *services) setAvailability(c *gin.Context) error {
	var q setAvailabilityQuery
	if appErr := api.BindQueryAndValidate(c, &q); appErr != nil {
		return appErr
	}
	if q.Quantity == 0 {
		q.Quantity = 1
	}

	result, err := s.transactions.ValidateSetAvailability(c.Request.Context(), application.SetAvailabilityQuery{
		SetID:    c.Param("id"),
		Quantity: q.Quantity,
		Type:     q.Type,
		UnitID:   q.UnitID,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, result)
	return nil
}

type componentRequest struct {
	InstrumentID string `json:"instrumentId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"gte=1"`
}

type defineSetRequest struct {
	ID          string             `json:"id"`
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Items       []componentRequest `json:"items" binding:"required,min=1,dive"`
}

func (s *services) defineSet(c *gin.Context) error {
	var req defineSetRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	cmd := application.DefineSetCommand{ID: req.ID, Name: req.Name, Description: req.Description}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, application.SetComponentInput{InstrumentID: it.InstrumentID, Quantity: it.Quantity})
	}

	set, err := s.packs.DefineSet(c.Request.Context(), cmd)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, set)
	return nil
}

func (s *services) getSet(c *gin.Context) error {
	set, err := s.packs.GetSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, set)
	return nil
}

func (s *services) listSets(c *gin.Context) error {
	sets, err := s.packs.ListSets(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, sets)
	return nil
}

// Processing

type processItemRequest struct {
	InstrumentID string `json:"instrumentId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"gte=1"`
}

type washRequest struct {
	Items    []processItemRequest `json:"items" binding:"required,min=1,dive"`
	Operator string               `json:"operator"`
}

func toProcessItems(items []processItemRequest) []application.ProcessItemInput {
	out := make([]application.ProcessItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, application.ProcessItemInput{InstrumentID: it.InstrumentID, Quantity: it.Quantity})
	}
	return out
}

func (s *services) wash(c *gin.Context) error {
	var req washRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	batch, err := s.lifecycle.WashItems(c.Request.Context(), application.WashItemsCommand{
		Items:    toProcessItems(req.Items),
		Operator: operatorOr(c, req.Operator),
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, batch)
	return nil
}

type sterilizeRequest struct {
	Items    []processItemRequest `json:"items" binding:"required,min=1,dive"`
	Operator string               `json:"operator"`
	Machine  string               `json:"machine"`
	Status   string               `json:"status" binding:"required,sterilize_status"`
}

func (s *services) sterilize(c *gin.Context) error {
	var req sterilizeRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	result, err := s.lifecycle.SterilizeItems(c.Request.Context(), application.SterilizeItemsCommand{
		Items:    toProcessItems(req.Items),
		Operator: operatorOr(c, req.Operator),
		Machine:  req.Machine,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, result)
	return nil
}

func (s *services) listBatches(c *gin.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	batches, err := s.lifecycle.ListBatches(c.Request.Context(), limit)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, batches)
	return nil
}

// Packs

type packItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	ItemType string `json:"itemType" binding:"required,item_type"`
	Quantity int    `json:"quantity" binding:"gte=1"`
}

type createPackRequest struct {
	Name         string            `json:"name"`
	Type         string            `json:"type" binding:"omitempty,pack_type"`
	TargetUnitID string            `json:"targetUnitId"`
	Items        []packItemRequest `json:"items" binding:"required,min=1,dive"`
	CreatedBy    string            `json:"createdBy"`
}

func (s *services) createPack(c *gin.Context) error {
	var req createPackRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}

	cmd := application.CreatePackCommand{
		Name:         req.Name,
		Type:         req.Type,
		TargetUnitID: req.TargetUnitID,
		CreatedBy:    operatorOr(c, req.CreatedBy),
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, application.PackItemInput{ItemID: it.ItemID, ItemType: it.ItemType, Quantity: it.Quantity})
	}

	pack, err := s.packs.CreatePack(c.Request.Context(), cmd)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, pack)
	return nil
}

func (s *services) sterilizePack(c *gin.Context) error {
	pack, err := s.packs.SterilizePack(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, pack)
	return nil
}

func (s *services) getPack(c *gin.Context) error {
	pack, err := s.packs.GetPack(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, pack)
	return nil
}

type listPacksQuery struct {
	Status       string `form:"status" binding:"omitempty,oneof=PACKED STERILIZED DISTRIBUTED EXPIRED"`
	TargetUnitID string `form:"targetUnitId"`
}

func (s *services) listPacks(c *gin.Context) error {
	var q listPacksQuery
	if appErr := api.BindQueryAndValidate(c, &q); appErr != nil {
		return appErr
	}
	packs, err := s.packs.ListPacks(c.Request.Context(), application.ListPacksQuery{Status: q.Status, TargetUnitID: q.TargetUnitID})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, packs)
	return nil
}

// Loans

func (s *services) overdueInstruments(c *gin.Context) error {
	units, err := s.overdue.GetOverdueInstruments(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, units)
	return nil
}

func (s *services) unitOverdue(c *gin.Context) error {
	status, err := s.overdue.CheckUnitOverdue(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, status)
	return nil
}

func (s *services) unitOutstanding(c *gin.Context) error {
	lines, err := s.overdue.GetOutstanding(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, lines)
	return nil
}

// Catalog

type registerInstrumentRequest struct {
	ID           string `json:"id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Category     string `json:"category"`
	InitialStock int    `json:"initialStock" binding:"gte=0"`
	IsSerialized bool   `json:"isSerialized"`
}

func (s *services) registerInstrument(c *gin.Context) error {
	var req registerInstrumentRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}
	inst, err := s.catalog.RegisterInstrument(c.Request.Context(), application.RegisterInstrumentCommand{
		ID:           req.ID,
		Name:         req.Name,
		Category:     req.Category,
		InitialStock: req.InitialStock,
		IsSerialized: req.IsSerialized,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, inst)
	return nil
}

func (s *services) getInstrument(c *gin.Context) error {
	inst, err := s.catalog.GetInstrument(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, inst)
	return nil
}

func (s *services) listInstruments(c *gin.Context) error {
	instruments, err := s.catalog.ListInstruments(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, instruments)
	return nil
}

type registerAssetRequest struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serialNumber" binding:"required"`
	Location     string `json:"location"`
}

func (s *services) registerAsset(c *gin.Context) error {
	var req registerAssetRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}
	asset, err := s.catalog.RegisterAsset(c.Request.Context(), application.RegisterAssetCommand{
		ID:           req.ID,
		InstrumentID: c.Param("id"),
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, asset)
	return nil
}

func (s *services) listAssets(c *gin.Context) error {
	assets, err := s.catalog.ListAssets(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, assets)
	return nil
}

type updateAssetStatusRequest struct {
	Status   string `json:"status" binding:"required,oneof=READY IN_USE DIRTY CLEAN MAINTENANCE BROKEN LOST"`
	Location string `json:"location"`
}

func (s *services) updateAssetStatus(c *gin.Context) error {
	var req updateAssetStatusRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}
	asset, err := s.catalog.UpdateAssetStatus(c.Request.Context(), application.UpdateAssetStatusCommand{
		AssetID:  c.Param("id"),
		Status:   req.Status,
		Location: req.Location,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, asset)
	return nil
}

type registerUnitRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func (s *services) registerUnit(c *gin.Context) error {
	var req registerUnitRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}
	unit, err := s.catalog.RegisterUnit(c.Request.Context(), application.RegisterUnitCommand{ID: req.ID, Name: req.Name})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, unit)
	return nil
}

func (s *services) listUnits(c *gin.Context) error {
	units, err := s.catalog.ListUnits(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, units)
	return nil
}

type parLevelRequest struct {
	MaxStock *int `json:"maxStock" binding:"omitempty,gte=0"`
}

// setParLevel sets the par level; a null maxStock clears it
func (s *services) setParLevel(c *gin.Context) error {
	var req parLevelRequest
	if appErr := api.BindAndValidate(c, &req); appErr != nil {
		return appErr
	}
	err := s.catalog.SetParLevel(c.Request.Context(), application.SetParLevelCommand{
		UnitID:       c.Param("id"),
		InstrumentID: c.Param("instrumentId"),
		MaxStock:     req.MaxStock,
	})
	if err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (s *services) unitStock(c *gin.Context) error {
	stock, err := s.catalog.ListUnitStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, stock)
	return nil
}

func (s *services) checkStock(c *gin.Context) error {
	report, err := s.audit.CheckStock(c.Request.Context())
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, report)
	return nil
}
