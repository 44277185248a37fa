package catalog

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	t.Run("creates root category with valid inputs", func(t *testing.T) {
		category, err := NewCategory("Home & Office", "home-office")
		require.NoError(t, err)
		require.NotNil(t, category)

		assert.Equal(t, "Home & Office", category.Name)
		assert.Equal(t, "home-office", category.Slug)
		assert.True(t, category.IsActive)
		assert.True(t, category.IsRoot())
		assert.Equal(t, 0, category.Level)
		assert.Equal(t, category.ID.String(), category.Path)
	})

	t.Run("lowercases slug", func(t *testing.T) {
		category, err := NewCategory("Home", "Home")
		require.NoError(t, err)
		assert.Equal(t, "home", category.Slug)
	})

	t.Run("publishes CategoryCreated event", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)

		events := category.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeCategoryCreated, events[0].EventType())

		event, ok := events[0].(*CategoryCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, category.ID, event.CategoryID)
		assert.Equal(t, "home", event.Slug)
		assert.Nil(t, event.ParentID)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewCategory("", "home")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with empty slug", func(t *testing.T) {
		_, err := NewCategory("Home", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slug cannot be empty")
	})

	t.Run("fails with invalid slug characters", func(t *testing.T) {
		_, err := NewCategory("Home", "home office")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lowercase letters, numbers, and hyphens")
	})

	t.Run("fails with slug too long", func(t *testing.T) {
		_, err := NewCategory("Home", strings.Repeat("a", 121))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed 120 characters")
	})
}

func TestNewChildCategory(t *testing.T) {
	t.Run("creates child under parent", func(t *testing.T) {
		parent, err := NewCategory("Home", "home")
		require.NoError(t, err)

		child, err := NewChildCategory("Desks", "desks", parent)
		require.NoError(t, err)

		assert.Equal(t, parent.ID, *child.ParentID)
		assert.Equal(t, 1, child.Level)
		assert.Equal(t, parent.Path+"/"+child.ID.String(), child.Path)
		assert.False(t, child.IsRoot())
	})

	t.Run("fails without parent", func(t *testing.T) {
		_, err := NewChildCategory("Desks", "desks", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Parent category is required")
	})

	t.Run("enforces maximum depth", func(t *testing.T) {
		current, err := NewCategory("Level 0", "level-0")
		require.NoError(t, err)

		for i := 1; i < MaxCategoryDepth; i++ {
			current, err = NewChildCategory("Deeper", "deeper", current)
			require.NoError(t, err)
		}

		_, err = NewChildCategory("Too Deep", "too-deep", current)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depth cannot exceed")
	})
}

func TestCategoryTree(t *testing.T) {
	t.Run("ancestor and descendant checks", func(t *testing.T) {
		root, err := NewCategory("Home", "home")
		require.NoError(t, err)
		child, err := NewChildCategory("Desks", "desks", root)
		require.NoError(t, err)
		grandchild, err := NewChildCategory("Standing Desks", "standing-desks", child)
		require.NoError(t, err)

		assert.True(t, root.IsAncestorOf(grandchild))
		assert.True(t, grandchild.IsDescendantOf(root))
		assert.False(t, grandchild.IsAncestorOf(root))

		ancestors := grandchild.GetAncestorIDs()
		require.Len(t, ancestors, 2)
		assert.Equal(t, root.ID, ancestors[0])
		assert.Equal(t, child.ID, ancestors[1])
	})

	t.Run("root has no ancestors", func(t *testing.T) {
		root, err := NewCategory("Home", "home")
		require.NoError(t, err)
		assert.Nil(t, root.GetAncestorIDs())
	})
}

func TestCategoryVisibility(t *testing.T) {
	t.Run("deactivate hides category", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)
		category.ClearDomainEvents()

		require.NoError(t, category.Deactivate())
		assert.False(t, category.IsActive)

		events := category.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*CategoryVisibilityChangedEvent)
		require.True(t, ok)
		assert.False(t, event.IsActive)
	})

	t.Run("deactivate twice fails", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)
		require.NoError(t, category.Deactivate())

		err = category.Deactivate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already inactive")
	})

	t.Run("activate restores visibility", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)
		require.NoError(t, category.Deactivate())

		require.NoError(t, category.Activate())
		assert.True(t, category.IsActive)
	})

	t.Run("activate when already active fails", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)

		err = category.Activate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already active")
	})
}

func TestCategoryUpdate(t *testing.T) {
	t.Run("updates name and description", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)
		initialVersion := category.GetVersion()

		require.NoError(t, category.Update("Home & Garden", "Everything for the house"))

		assert.Equal(t, "Home & Garden", category.Name)
		assert.Equal(t, "Everything for the house", category.Description)
		assert.Equal(t, initialVersion+1, category.GetVersion())
	})

	t.Run("updates slug", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)

		require.NoError(t, category.UpdateSlug("home-and-garden"))
		assert.Equal(t, "home-and-garden", category.Slug)
	})

	t.Run("sort order bumps version without event", func(t *testing.T) {
		category, err := NewCategory("Home", "home")
		require.NoError(t, err)
		category.ClearDomainEvents()

		category.SetSortOrder(5)

		assert.Equal(t, 5, category.SortOrder)
		assert.Empty(t, category.GetDomainEvents())
	})
}
