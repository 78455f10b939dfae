package motors

import (
	stderrors "errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterInventoryRoutes mounts the public browsing pages and the gated
// management area. Management requires an employee or admin session.
func RegisterInventoryRoutes[T any](app router.Router[T], opts ...InventoryControllerOption) {

	controller := NewInventoryController(opts...)

	app.Get("/inv/type/:id", controller.ClassificationShow).
		SetName("inv-type.get")
	app.Get("/inv/detail/:id", controller.DetailShow).
		SetName("inv-detail.get")

	manage := controller.Auther.RequireAccountType(RoleEmployee, RoleAdmin)

	app.Get("/inv", manage(controller.ManagementShow)).
		SetName("inv-manage.get")
	app.Get("/inv/list/:classification_id", manage(controller.ListJSON)).
		SetName("inv-list.get")

	app.Get("/inv/add-classification", manage(controller.ClassificationAddShow)).
		SetName("inv-add-classification.get")
	app.Post("/inv/add-classification", manage(controller.ClassificationAddPost)).
		SetName("inv-add-classification.post")

	app.Get("/inv/add", manage(controller.VehicleAddShow)).
		SetName("inv-add.get")
	app.Post("/inv/add", manage(controller.VehicleAddPost)).
		SetName("inv-add.post")

	app.Get("/inv/edit/:id", manage(controller.VehicleEditShow)).
		SetName("inv-edit.get")
	app.Post("/inv/edit/:id", manage(controller.VehicleEditPost)).
		SetName("inv-edit.post")

	app.Get("/inv/delete/:id", manage(controller.VehicleDeleteShow)).
		SetName("inv-delete.get")
	app.Post("/inv/delete/:id", manage(controller.VehicleDeletePost)).
		SetName("inv-delete.post")
}

type InventoryControllerViews struct {
	Classification    string
	Detail            string
	Management        string
	AddClassification string
	AddVehicle        string
	EditVehicle       string
	DeleteVehicle     string
}

type InventoryController struct {
	Logger       Logger
	Repo         RepositoryManager
	Views        *InventoryControllerViews
	Auther       HTTPAuthenticator
	Flash        *FlashQueue
	Nav          *Navigation
	ErrorHandler router.ErrorHandler
}

type InventoryControllerOption func(*InventoryController) *InventoryController

func WithInventoryRepo(repo RepositoryManager) InventoryControllerOption {
	return func(c *InventoryController) *InventoryController {
		c.Repo = repo
		return c
	}
}

func WithInventoryAuther(auther HTTPAuthenticator) InventoryControllerOption {
	return func(c *InventoryController) *InventoryController {
		c.Auther = auther
		return c
	}
}

func WithInventoryLogger(logger Logger) InventoryControllerOption {
	return func(c *InventoryController) *InventoryController {
		c.Logger = logger
		return c
	}
}

func WithInventoryFlash(queue *FlashQueue) InventoryControllerOption {
	return func(c *InventoryController) *InventoryController {
		c.Flash = queue
		return c
	}
}

func WithInventoryNav(nav *Navigation) InventoryControllerOption {
	return func(c *InventoryController) *InventoryController {
		c.Nav = nav
		return c
	}
}

func NewInventoryController(opts ...InventoryControllerOption) *InventoryController {
	c := &InventoryController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Views: &InventoryControllerViews{
			Classification:    "inventory/classification",
			Detail:            "inventory/detail",
			Management:        "inventory/management",
			AddClassification: "inventory/add-classification",
			AddVehicle:        "inventory/add-vehicle",
			EditVehicle:       "inventory/edit-vehicle",
			DeleteVehicle:     "inventory/delete-confirm",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in inventory controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in inventory controller...")
	}

	if c.Flash == nil {
		c.Flash = NewFlashQueue()
	}

	if c.Nav == nil {
		c.Nav = NewNavigation(c.Repo)
	}

	return c
}

// ClassificationShow renders the public grid of vehicles in a classification
func (a *InventoryController) ClassificationShow(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	classification, err := a.Repo.Classifications().GetByID(ctx.Context(), id.String())
	if err != nil {
		a.Logger.Error("classification load error", "error", err)
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	records, err := a.Repo.Vehicles().ListByClassification(ctx.Context(), id)
	if err != nil {
		a.Logger.Error("classification inventory error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Classification, MergeTemplateData(ctx, router.ViewContext{
		"title":          classification.Name + " vehicles",
		"classification": classification,
		"vehicles":       records,
	}))
}

// DetailShow renders the public vehicle detail page
func (a *InventoryController) DetailShow(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	vehicle, err := a.Repo.Vehicles().GetDetail(ctx.Context(), id)
	if err != nil {
		a.Logger.Error("vehicle detail error", "error", err)
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	return ctx.Render(a.Views.Detail, MergeTemplateData(ctx, router.ViewContext{
		"title":   vehicle.Title(),
		"vehicle": vehicle,
	}))
}

// ManagementShow renders the inventory management dashboard
func (a *InventoryController) ManagementShow(ctx router.Context) error {
	classifications, err := a.Repo.Classifications().ListOrdered(ctx.Context())
	if err != nil {
		a.Logger.Error("management classifications error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Management, MergeTemplateData(ctx, router.ViewContext{
		"title":           "Inventory Management",
		"classifications": classifications,
	}))
}

// ListJSON feeds the management table with the vehicles of a classification
func (a *InventoryController) ListJSON(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("classification_id", ""))
	if err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"error": "invalid classification id",
		})
	}

	records, err := a.Repo.Vehicles().ListByClassification(ctx.Context(), id)
	if err != nil {
		a.Logger.Error("inventory list error", "error", err)
		return ctx.JSON(fiber.StatusInternalServerError, map[string]string{
			"error": "failed to load inventory",
		})
	}

	return ctx.JSON(fiber.StatusOK, records)
}

// ClassificationPayload is the add-classification form
type ClassificationPayload struct {
	Name string `form:"classification_name" json:"classification_name"`
}

// Validate will validate the payload. Classification names feed the nav bar,
// so they stay single alphanumeric words.
func (r ClassificationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required,
			validation.Length(1, 50),
			is.Alphanumeric,
		),
	)
}

func (a *InventoryController) ClassificationAddShow(ctx router.Context) error {
	return ctx.Render(a.Views.AddClassification, MergeTemplateData(ctx, router.ViewContext{
		"title":  "Add Classification",
		"errors": map[string]string{},
	}))
}

func (a *InventoryController) ClassificationAddPost(ctx router.Context) error {
	payload := new(ClassificationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("classification add parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(router.StatusBadRequest).Render(a.Views.AddClassification, MergeTemplateData(ctx, router.ViewContext{
			"title":      "Add Classification",
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		}))
	}

	record := &Classification{Name: payload.Name}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := a.Repo.Classifications().Create(ctx.Context(), record); err != nil {
		a.Logger.Error("classification add error", "error", err)
		return a.Flash.WithError(ctx, "Sorry, adding the classification failed.").
			Render(a.Views.AddClassification, MergeTemplateData(ctx, router.ViewContext{
				"title":  "Add Classification",
				"record": payload,
				"errors": map[string]string{"form": "Sorry, adding the classification failed."},
			}))
	}

	a.Nav.Invalidate()

	return a.Flash.WithSuccess(ctx, fmt.Sprintf("The %s classification was added.", payload.Name)).
		Redirect("/inv", router.StatusSeeOther)
}

// VehiclePayload is the add/edit vehicle form
type VehiclePayload struct {
	ClassificationID string `form:"classification_id" json:"classification_id"`
	Make             string `form:"make" json:"make"`
	Model            string `form:"model" json:"model"`
	Year             int    `form:"model_year" json:"model_year"`
	Description      string `form:"description" json:"description"`
	Image            string `form:"image_path" json:"image_path"`
	Thumbnail        string `form:"thumbnail_path" json:"thumbnail_path"`
	Price            int64  `form:"price" json:"price"`
	Miles            int    `form:"miles" json:"miles"`
	Color            string `form:"color" json:"color"`
}

// Validate will validate the payload
func (r VehiclePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ClassificationID, validation.Required, is.UUID),
		validation.Field(&r.Make, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Model, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Year, validation.Required, validation.Min(1900), validation.Max(2100)),
		validation.Field(&r.Price, validation.Required, validation.Min(0)),
		validation.Field(&r.Miles, validation.Min(0)),
		validation.Field(&r.Color, validation.Length(0, 50)),
	)
}

func (r VehiclePayload) toRecord() (*Vehicle, error) {
	classificationID, err := uuid.Parse(r.ClassificationID)
	if err != nil {
		return nil, stderrors.New("invalid classification id")
	}

	return &Vehicle{
		ClassificationID: classificationID,
		Make:             r.Make,
		Model:            r.Model,
		Year:             r.Year,
		Description:      r.Description,
		Image:            r.Image,
		Thumbnail:        r.Thumbnail,
		Price:            r.Price,
		Miles:            r.Miles,
		Color:            r.Color,
	}, nil
}

func (a *InventoryController) VehicleAddShow(ctx router.Context) error {
	classifications, err := a.Repo.Classifications().ListOrdered(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.AddVehicle, MergeTemplateData(ctx, router.ViewContext{
		"title":           "Add Vehicle",
		"classifications": classifications,
		"errors":          map[string]string{},
	}))
}

func (a *InventoryController) VehicleAddPost(ctx router.Context) error {
	payload := new(VehiclePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("vehicle add parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderVehicleForm(ctx, a.Views.AddVehicle, "Add Vehicle", payload, FormatValidationErrorToMap(err), router.StatusBadRequest)
	}

	record, err := payload.toRecord()
	if err != nil {
		return a.renderVehicleForm(ctx, a.Views.AddVehicle, "Add Vehicle", payload, map[string]string{"classification_id": err.Error()}, router.StatusBadRequest)
	}
	record.ID = uuid.New()

	if _, err := a.Repo.Vehicles().Create(ctx.Context(), record); err != nil {
		a.Logger.Error("vehicle add error", "error", err)
		return a.Flash.WithError(ctx, "Sorry, adding the vehicle failed.").
			Render(a.Views.AddVehicle, MergeTemplateData(ctx, router.ViewContext{
				"title":  "Add Vehicle",
				"record": payload,
				"errors": map[string]string{"form": "Sorry, adding the vehicle failed."},
			}))
	}

	return a.Flash.WithSuccess(ctx, fmt.Sprintf("The %s %s was added.", payload.Make, payload.Model)).
		Redirect("/inv", router.StatusSeeOther)
}

func (a *InventoryController) VehicleEditShow(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	vehicle, err := a.Repo.Vehicles().GetDetail(ctx.Context(), id)
	if err != nil {
		a.Logger.Error("vehicle edit load error", "error", err)
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	classifications, err := a.Repo.Classifications().ListOrdered(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.EditVehicle, MergeTemplateData(ctx, router.ViewContext{
		"title":           "Edit " + vehicle.Title(),
		"vehicle":         vehicle,
		"record":          vehicle,
		"classifications": classifications,
		"errors":          map[string]string{},
	}))
}

func (a *InventoryController) VehicleEditPost(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	payload := new(VehiclePayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("vehicle edit parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderVehicleForm(ctx, a.Views.EditVehicle, "Edit Vehicle", payload, FormatValidationErrorToMap(err), router.StatusBadRequest)
	}

	record, err := payload.toRecord()
	if err != nil {
		return a.renderVehicleForm(ctx, a.Views.EditVehicle, "Edit Vehicle", payload, map[string]string{"classification_id": err.Error()}, router.StatusBadRequest)
	}
	record.ID = id

	if _, err := a.Repo.Vehicles().Update(ctx.Context(), record); err != nil {
		a.Logger.Error("vehicle edit error", "error", err)
		return a.Flash.WithError(ctx, "Sorry, the update failed.").
			Render(a.Views.EditVehicle, MergeTemplateData(ctx, router.ViewContext{
				"title":  "Edit Vehicle",
				"record": payload,
				"errors": map[string]string{"form": "Sorry, the update failed."},
			}))
	}

	return a.Flash.WithSuccess(ctx, fmt.Sprintf("The %s %s was updated.", payload.Make, payload.Model)).
		Redirect("/inv", router.StatusSeeOther)
}

func (a *InventoryController) VehicleDeleteShow(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	vehicle, err := a.Repo.Vehicles().GetDetail(ctx.Context(), id)
	if err != nil {
		a.Logger.Error("vehicle delete load error", "error", err)
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	return ctx.Render(a.Views.DeleteVehicle, MergeTemplateData(ctx, router.ViewContext{
		"title":   "Delete " + vehicle.Title(),
		"vehicle": vehicle,
	}))
}

func (a *InventoryController) VehicleDeletePost(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).Render("errors/404", MergeTemplateData(ctx, router.ViewContext{}))
	}

	if err := a.Repo.Vehicles().Delete(ctx.Context(), id); err != nil {
		a.Logger.Error("vehicle delete error", "error", err)
		return a.Flash.WithError(ctx, "Sorry, the delete failed.").
			Redirect("/inv", router.StatusSeeOther)
	}

	return a.Flash.WithSuccess(ctx, "The vehicle was deleted.").
		Redirect("/inv", router.StatusSeeOther)
}

func (a *InventoryController) renderVehicleForm(ctx router.Context, view, title string, payload *VehiclePayload, errs map[string]string, status int) error {
	classifications, err := a.Repo.Classifications().ListOrdered(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(status).Render(view, MergeTemplateData(ctx, router.ViewContext{
		"title":           title,
		"record":          payload,
		"classifications": classifications,
		"validation":      errs,
	}))
}
