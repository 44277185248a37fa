package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/shared"
)

func newCategoryService() (*CategoryService, *MockCategoryRepository) {
	repo := new(MockCategoryRepository)
	return NewCategoryService(repo, zap.NewNop()), repo
}

// ============================================================================
// Create
// ============================================================================

func TestCategoryService_Create_Root(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	repo.On("ExistsBySlug", ctx, "Outdoor-Gear").Return(false, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)

	sortOrder := 5
	resp, err := service.Create(ctx, CreateCategoryRequest{
		Name:        "Outdoor Gear",
		Slug:        "Outdoor-Gear",
		Description: "Tents, packs, and trail equipment",
		SortOrder:   &sortOrder,
	})

	require.NoError(t, err)
	assert.Equal(t, "Outdoor Gear", resp.Name)
	assert.Equal(t, "outdoor-gear", resp.Slug)
	assert.Equal(t, "Tents, packs, and trail equipment", resp.Description)
	assert.Nil(t, resp.ParentID)
	assert.Equal(t, 0, resp.Level)
	assert.Equal(t, 5, resp.SortOrder)
	assert.True(t, resp.IsActive)
}

func TestCategoryService_Create_Child(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	parent := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("ExistsBySlug", ctx, "backpacks").Return(false, nil)
	repo.On("FindByID", ctx, parent.ID).Return(parent, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)

	resp, err := service.Create(ctx, CreateCategoryRequest{
		Name:     "Backpacks",
		Slug:     "backpacks",
		ParentID: &parent.ID,
	})

	require.NoError(t, err)
	require.NotNil(t, resp.ParentID)
	assert.Equal(t, parent.ID, *resp.ParentID)
	assert.Equal(t, 1, resp.Level)
}

func TestCategoryService_Create_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	repo.On("ExistsBySlug", ctx, "outdoor-gear").Return(true, nil)

	_, err := service.Create(ctx, CreateCategoryRequest{Name: "Outdoor Gear", Slug: "outdoor-gear"})

	assertDomainErrorCode(t, err, "SLUG_ALREADY_TAKEN")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCategoryService_Create_ParentNotFound(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()
	parentID := uuid.New()

	repo.On("ExistsBySlug", ctx, "backpacks").Return(false, nil)
	repo.On("FindByID", ctx, parentID).Return(nil, shared.ErrNotFound)

	_, err := service.Create(ctx, CreateCategoryRequest{
		Name:     "Backpacks",
		Slug:     "backpacks",
		ParentID: &parentID,
	})

	assertDomainErrorCode(t, err, "INVALID_PARENT")
}

func TestCategoryService_Create_MaxDepthExceeded(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	// Build a chain at the depth limit
	level0 := createTestCategory(t, "A", "cat-a")
	level1, err := catalog.NewChildCategory("B", "cat-b", level0)
	require.NoError(t, err)
	level2, err := catalog.NewChildCategory("C", "cat-c", level1)
	require.NoError(t, err)
	level3, err := catalog.NewChildCategory("D", "cat-d", level2)
	require.NoError(t, err)

	repo.On("ExistsBySlug", ctx, "cat-e").Return(false, nil)
	repo.On("FindByID", ctx, level3.ID).Return(level3, nil)

	_, err = service.Create(ctx, CreateCategoryRequest{
		Name:     "E",
		Slug:     "cat-e",
		ParentID: &level3.ID,
	})

	assertDomainErrorCode(t, err, "MAX_DEPTH_EXCEEDED")
}

// ============================================================================
// Update
// ============================================================================

func TestCategoryService_Update_NameAndSlug(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)
	repo.On("ExistsBySlug", ctx, "camping-gear").Return(false, nil)
	repo.On("Save", ctx, category).Return(nil)

	newName := "Camping Gear"
	newSlug := "camping-gear"
	resp, err := service.Update(ctx, category.ID, UpdateCategoryRequest{
		Name: &newName,
		Slug: &newSlug,
	})

	require.NoError(t, err)
	assert.Equal(t, "Camping Gear", resp.Name)
	assert.Equal(t, "camping-gear", resp.Slug)
}

func TestCategoryService_Update_SlugConflict(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)
	repo.On("ExistsBySlug", ctx, "taken").Return(true, nil)

	newSlug := "taken"
	_, err := service.Update(ctx, category.ID, UpdateCategoryRequest{Slug: &newSlug})

	assertDomainErrorCode(t, err, "SLUG_ALREADY_TAKEN")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// ============================================================================
// Activate / Deactivate
// ============================================================================

func TestCategoryService_DeactivateAndActivate(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)
	repo.On("Save", ctx, category).Return(nil)

	resp, err := service.Deactivate(ctx, category.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	resp, err = service.Activate(ctx, category.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
}

func TestCategoryService_Activate_AlreadyActive(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)

	_, err := service.Activate(ctx, category.ID)

	assertDomainErrorCode(t, err, "ALREADY_ACTIVE")
}

// ============================================================================
// Delete
// ============================================================================

func TestCategoryService_Delete_Success(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)
	repo.On("HasChildren", ctx, category.ID).Return(false, nil)
	repo.On("HasProducts", ctx, category.ID).Return(false, nil)
	repo.On("Delete", ctx, category.ID).Return(nil)

	err := service.Delete(ctx, category.ID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCategoryService_Delete_WithChildrenBlocked(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)
	repo.On("HasChildren", ctx, category.ID).Return(true, nil)

	err := service.Delete(ctx, category.ID)

	assertDomainErrorCode(t, err, "HAS_CHILDREN")
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCategoryService_Delete_WithProductsBlocked(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindByID", ctx, category.ID).Return(category, nil)
	repo.On("HasChildren", ctx, category.ID).Return(false, nil)
	repo.On("HasProducts", ctx, category.ID).Return(true, nil)

	err := service.Delete(ctx, category.ID)

	assertDomainErrorCode(t, err, "HAS_PRODUCTS")
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// ============================================================================
// GetTree
// ============================================================================

func TestCategoryService_GetTree(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	root1 := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	root1.SetSortOrder(1)
	root2 := createTestCategory(t, "Electronics", "electronics")
	root2.SetSortOrder(2)
	child, err := catalog.NewChildCategory("Backpacks", "backpacks", root1)
	require.NoError(t, err)
	grandchild, err := catalog.NewChildCategory("Daypacks", "daypacks", child)
	require.NoError(t, err)

	// FindActive returns the flat list ordered by level then sort order
	repo.On("FindActive", ctx).Return([]catalog.Category{*root1, *root2, *child, *grandchild}, nil)

	tree, err := service.GetTree(ctx)

	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "outdoor-gear", tree[0].Slug)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "backpacks", tree[0].Children[0].Slug)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "daypacks", tree[0].Children[0].Children[0].Slug)
	assert.Empty(t, tree[1].Children)
}

func TestCategoryService_GetTree_OmitsOrphans(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	root := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	hiddenParent := createTestCategory(t, "Hidden", "hidden")
	orphan, err := catalog.NewChildCategory("Orphan", "orphan", hiddenParent)
	require.NoError(t, err)

	// The orphan's parent is inactive and missing from the flat list
	repo.On("FindActive", ctx).Return([]catalog.Category{*root, *orphan}, nil)

	tree, err := service.GetTree(ctx)

	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "outdoor-gear", tree[0].Slug)
}

// ============================================================================
// List
// ============================================================================

func TestCategoryService_List_Paginates(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()

	category := createTestCategory(t, "Outdoor Gear", "outdoor-gear")
	repo.On("FindAll", ctx, mock.Anything).Return([]catalog.Category{*category}, nil)
	repo.On("Count", ctx, mock.Anything).Return(int64(11), nil)

	page, err := service.List(ctx, CategoryListFilter{Page: 2, PageSize: 5})

	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.PageSize)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
}

func TestCategoryService_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	service, repo := newCategoryService()
	id := uuid.New()

	repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	_, err := service.GetByID(ctx, id)

	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
