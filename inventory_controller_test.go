package motors_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	motors "github.com/parkmoor/motors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (s *stubClassificationsRepo) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*motors.Classification, error) {
	for _, record := range s.records {
		if record.ID.String() == id {
			return record, nil
		}
	}
	return nil, errors.New("record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

func (s *stubClassificationsRepo) Create(ctx context.Context, record *motors.Classification, criteria ...repository.InsertCriteria) (*motors.Classification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.records = append(s.records, record)
	return record, nil
}

// stubVehiclesRepo keeps the managed inventory in memory
type stubVehiclesRepo struct {
	motors.Vehicles
	byID      map[uuid.UUID]*motors.Vehicle
	listing   []*motors.Vehicle
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	created   *motors.Vehicle
	updated   *motors.Vehicle
	deleted   uuid.UUID
}

func (s *stubVehiclesRepo) ListByClassification(ctx context.Context, classificationID uuid.UUID) ([]*motors.Vehicle, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listing, nil
}

func (s *stubVehiclesRepo) GetDetail(ctx context.Context, id uuid.UUID) (*motors.Vehicle, error) {
	if record, ok := s.byID[id]; ok {
		return record, nil
	}
	return nil, errors.New("record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

func (s *stubVehiclesRepo) Create(ctx context.Context, record *motors.Vehicle, criteria ...repository.InsertCriteria) (*motors.Vehicle, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = record
	return record, nil
}

func (s *stubVehiclesRepo) Update(ctx context.Context, record *motors.Vehicle, criteria ...repository.UpdateCriteria) (*motors.Vehicle, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = record
	return record, nil
}

func (s *stubVehiclesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = id
	return nil
}

type stubInventoryManager struct {
	motors.RepositoryManager
	classifications *stubClassificationsRepo
	vehicles        *stubVehiclesRepo
}

func (s *stubInventoryManager) Classifications() motors.Classifications {
	return s.classifications
}

func (s *stubInventoryManager) Vehicles() motors.Vehicles {
	return s.vehicles
}

func newInventoryFixture() (*stubInventoryManager, *motors.Classification, *motors.Vehicle) {
	classification := &motors.Classification{
		ID:   uuid.New(),
		Name: "SUV",
	}
	vehicle := &motors.Vehicle{
		ID:               uuid.New(),
		ClassificationID: classification.ID,
		Make:             "Jeep",
		Model:            "Wrangler",
		Year:             2021,
		Price:            23899,
		Miles:            41000,
		Color:            "Yellow",
	}

	repo := &stubInventoryManager{
		classifications: &stubClassificationsRepo{records: []*motors.Classification{classification}},
		vehicles: &stubVehiclesRepo{
			byID:    map[uuid.UUID]*motors.Vehicle{vehicle.ID: vehicle},
			listing: []*motors.Vehicle{vehicle},
		},
	}
	return repo, classification, vehicle
}

func newInventoryController(t *testing.T, repo motors.RepositoryManager) (*motors.InventoryController, *motors.FlashQueue) {
	t.Helper()

	auther, err := motors.NewHTTPAuthenticator(&MockAuthenticator{}, newTestConfig())
	require.NoError(t, err)
	auther.WithLogger(MockLogger{})

	flash := motors.NewFlashQueue(motors.WithFlashLogger(MockLogger{}))

	controller := motors.NewInventoryController(
		motors.WithInventoryRepo(repo),
		motors.WithInventoryAuther(auther),
		motors.WithInventoryLogger(MockLogger{}),
		motors.WithInventoryFlash(flash),
		motors.WithInventoryNav(motors.NewNavigation(repo).WithLogger(MockLogger{})),
	)
	return controller, flash
}

func TestInventoryClassificationShow(t *testing.T) {
	t.Run("renders the grid for a known classification", func(t *testing.T) {
		repo, classification, vehicle := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(classification.ID.String())

		var bind router.ViewContext
		captureRender(ctx, "inventory/classification", &bind)

		require.NoError(t, controller.ClassificationShow(ctx))
		assert.Equal(t, "SUV vehicles", bind["title"])
		assert.Equal(t, []*motors.Vehicle{vehicle}, bind["vehicles"])
	})

	t.Run("a malformed id is a 404", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Param", "id", "").Return("not-a-uuid")
		ctx.On("Status", router.StatusNotFound).Return()
		ctx.On("Render", "errors/404", mock.Anything).Return(nil)

		require.NoError(t, controller.ClassificationShow(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("an unknown classification is a 404", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(uuid.New().String())
		ctx.On("Status", router.StatusNotFound).Return()
		ctx.On("Render", "errors/404", mock.Anything).Return(nil)

		require.NoError(t, controller.ClassificationShow(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestInventoryDetailShow(t *testing.T) {
	t.Run("renders the vehicle page", func(t *testing.T) {
		repo, _, vehicle := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(vehicle.ID.String())

		var bind router.ViewContext
		captureRender(ctx, "inventory/detail", &bind)

		require.NoError(t, controller.DetailShow(ctx))
		assert.Equal(t, "2021 Jeep Wrangler", bind["title"])
		assert.Equal(t, vehicle, bind["vehicle"])
	})

	t.Run("an unknown vehicle is a 404", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(uuid.New().String())
		ctx.On("Status", router.StatusNotFound).Return()
		ctx.On("Render", "errors/404", mock.Anything).Return(nil)

		require.NoError(t, controller.DetailShow(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestInventoryManagementShow(t *testing.T) {
	repo, classification, _ := newInventoryFixture()
	controller, _ := newInventoryController(t, repo)

	ctx := newStubContext()
	ctx.On("Context").Return(context.Background())

	var bind router.ViewContext
	captureRender(ctx, "inventory/management", &bind)

	require.NoError(t, controller.ManagementShow(ctx))
	assert.Equal(t, "Inventory Management", bind["title"])
	assert.Equal(t, []*motors.Classification{classification}, bind["classifications"])
}

func TestInventoryListJSON(t *testing.T) {
	t.Run("feeds the management table", func(t *testing.T) {
		repo, classification, vehicle := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "classification_id", "").Return(classification.ID.String())
		ctx.On("JSON", router.StatusOK, []*motors.Vehicle{vehicle}).Return(nil)

		require.NoError(t, controller.ListJSON(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("a malformed id is a client error", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Param", "classification_id", "").Return("not-a-uuid")
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		require.NoError(t, controller.ListJSON(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("store failures never leak details", func(t *testing.T) {
		repo, classification, _ := newInventoryFixture()
		repo.vehicles.listErr = errors.New("connection refused", errors.CategoryInternal)
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "classification_id", "").Return(classification.ID.String())
		ctx.On("JSON", router.StatusInternalServerError, map[string]string{
			"error": "failed to load inventory",
		}).Return(nil)

		require.NoError(t, controller.ListJSON(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestInventoryClassificationAdd(t *testing.T) {
	bindClassification := func(ctx *stubContext, name string) {
		ctx.On("Bind", mock.AnythingOfType("*motors.ClassificationPayload")).
			Run(func(args mock.Arguments) {
				args.Get(0).(*motors.ClassificationPayload).Name = name
			}).Return(nil)
	}

	t.Run("a name with spaces fails validation", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		bindClassification(ctx, "Sport Utility")
		ctx.On("Status", router.StatusBadRequest).Return()

		var bind router.ViewContext
		captureRender(ctx, "inventory/add-classification", &bind)

		require.NoError(t, controller.ClassificationAddPost(ctx))

		validation := bind["validation"].(map[string]string)
		assert.Contains(t, validation, "classification_name")
	})

	t.Run("success stores the classification and refreshes the nav", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, flash := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		bindClassification(ctx, "Convertible")
		ctx.On("Redirect", "/inv", []int{router.StatusSeeOther}).Return(nil)

		require.NoError(t, controller.ClassificationAddPost(ctx))

		entry, ok := flash.Pull(ctx)
		require.True(t, ok)
		assert.Equal(t, motors.FlashSuccess, entry.Category)
		assert.Equal(t, "The Convertible classification was added.", entry.Message)

		names := []string{}
		for _, record := range repo.classifications.records {
			names = append(names, record.Name)
		}
		assert.Contains(t, names, "Convertible")
	})

	t.Run("a store failure re-renders the form", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		repo.classifications.createErr = errors.New("constraint violation", errors.CategoryInternal)
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		bindClassification(ctx, "Convertible")

		var bind router.ViewContext
		captureRender(ctx, "inventory/add-classification", &bind)

		require.NoError(t, controller.ClassificationAddPost(ctx))

		errs := bind["errors"].(map[string]string)
		assert.Equal(t, "Sorry, adding the classification failed.", errs["form"])
	})
}

func TestInventoryVehicleAdd(t *testing.T) {
	validForm := func(classificationID uuid.UUID) motors.VehiclePayload {
		return motors.VehiclePayload{
			ClassificationID: classificationID.String(),
			Make:             "Jeep",
			Model:            "Wrangler",
			Year:             2021,
			Description:      "Trail rated",
			Price:            23899,
			Miles:            41000,
			Color:            "Yellow",
		}
	}

	bindVehicle := func(ctx *stubContext, form motors.VehiclePayload) {
		ctx.On("Bind", mock.AnythingOfType("*motors.VehiclePayload")).
			Run(func(args mock.Arguments) {
				*args.Get(0).(*motors.VehiclePayload) = form
			}).Return(nil)
	}

	t.Run("a missing make re-renders with the classification list", func(t *testing.T) {
		repo, classification, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		form := validForm(classification.ID)
		form.Make = ""

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		bindVehicle(ctx, form)
		ctx.On("Status", router.StatusBadRequest).Return()

		var bind router.ViewContext
		captureRender(ctx, "inventory/add-vehicle", &bind)

		require.NoError(t, controller.VehicleAddPost(ctx))

		validation := bind["validation"].(map[string]string)
		assert.Contains(t, validation, "make")
		assert.Equal(t, []*motors.Classification{classification}, bind["classifications"])
		assert.Nil(t, repo.vehicles.created)
	})

	t.Run("success stores the vehicle", func(t *testing.T) {
		repo, classification, _ := newInventoryFixture()
		controller, flash := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		bindVehicle(ctx, validForm(classification.ID))
		ctx.On("Redirect", "/inv", []int{router.StatusSeeOther}).Return(nil)

		require.NoError(t, controller.VehicleAddPost(ctx))

		entry, ok := flash.Pull(ctx)
		require.True(t, ok)
		assert.Equal(t, "The Jeep Wrangler was added.", entry.Message)

		created := repo.vehicles.created
		require.NotNil(t, created)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, classification.ID, created.ClassificationID)
		assert.Equal(t, int64(23899), created.Price)
	})

	t.Run("a store failure re-renders the form", func(t *testing.T) {
		repo, classification, _ := newInventoryFixture()
		repo.vehicles.createErr = errors.New("constraint violation", errors.CategoryInternal)
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		bindVehicle(ctx, validForm(classification.ID))

		var bind router.ViewContext
		captureRender(ctx, "inventory/add-vehicle", &bind)

		require.NoError(t, controller.VehicleAddPost(ctx))

		errs := bind["errors"].(map[string]string)
		assert.Equal(t, "Sorry, adding the vehicle failed.", errs["form"])
	})
}

func TestInventoryVehicleEdit(t *testing.T) {
	t.Run("show loads the record with the classification list", func(t *testing.T) {
		repo, classification, vehicle := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(vehicle.ID.String())

		var bind router.ViewContext
		captureRender(ctx, "inventory/edit-vehicle", &bind)

		require.NoError(t, controller.VehicleEditShow(ctx))
		assert.Equal(t, "Edit 2021 Jeep Wrangler", bind["title"])
		assert.Equal(t, []*motors.Classification{classification}, bind["classifications"])
	})

	t.Run("post updates the addressed vehicle", func(t *testing.T) {
		repo, classification, vehicle := newInventoryFixture()
		controller, flash := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(vehicle.ID.String())
		ctx.On("Bind", mock.AnythingOfType("*motors.VehiclePayload")).
			Run(func(args mock.Arguments) {
				*args.Get(0).(*motors.VehiclePayload) = motors.VehiclePayload{
					ClassificationID: classification.ID.String(),
					Make:             "Jeep",
					Model:            "Wrangler",
					Year:             2021,
					Price:            21500,
					Miles:            47000,
				}
			}).Return(nil)
		ctx.On("Redirect", "/inv", []int{router.StatusSeeOther}).Return(nil)

		require.NoError(t, controller.VehicleEditPost(ctx))

		entry, ok := flash.Pull(ctx)
		require.True(t, ok)
		assert.Equal(t, "The Jeep Wrangler was updated.", entry.Message)

		updated := repo.vehicles.updated
		require.NotNil(t, updated)
		assert.Equal(t, vehicle.ID, updated.ID)
		assert.Equal(t, int64(21500), updated.Price)
	})

	t.Run("a malformed id is a 404 before the body is read", func(t *testing.T) {
		repo, _, _ := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Param", "id", "").Return("not-a-uuid")
		ctx.On("Status", router.StatusNotFound).Return()
		ctx.On("Render", "errors/404", mock.Anything).Return(nil)

		require.NoError(t, controller.VehicleEditPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestInventoryVehicleDelete(t *testing.T) {
	t.Run("show asks for confirmation", func(t *testing.T) {
		repo, _, vehicle := newInventoryFixture()
		controller, _ := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(vehicle.ID.String())

		var bind router.ViewContext
		captureRender(ctx, "inventory/delete-confirm", &bind)

		require.NoError(t, controller.VehicleDeleteShow(ctx))
		assert.Equal(t, "Delete 2021 Jeep Wrangler", bind["title"])
	})

	t.Run("post removes the vehicle", func(t *testing.T) {
		repo, _, vehicle := newInventoryFixture()
		controller, flash := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(vehicle.ID.String())
		ctx.On("Redirect", "/inv", []int{router.StatusSeeOther}).Return(nil)

		require.NoError(t, controller.VehicleDeletePost(ctx))

		entry, ok := flash.Pull(ctx)
		require.True(t, ok)
		assert.Equal(t, "The vehicle was deleted.", entry.Message)
		assert.Equal(t, vehicle.ID, repo.vehicles.deleted)
	})

	t.Run("a store failure reports and redirects", func(t *testing.T) {
		repo, _, vehicle := newInventoryFixture()
		repo.vehicles.deleteErr = errors.New("connection refused", errors.CategoryInternal)
		controller, flash := newInventoryController(t, repo)

		ctx := newStubContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "id", "").Return(vehicle.ID.String())
		ctx.On("Redirect", "/inv", []int{router.StatusSeeOther}).Return(nil)

		require.NoError(t, controller.VehicleDeletePost(ctx))

		entry, ok := flash.Pull(ctx)
		require.True(t, ok)
		assert.Equal(t, motors.FlashError, entry.Category)
		assert.Equal(t, "Sorry, the delete failed.", entry.Message)
	})
}
