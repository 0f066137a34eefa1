package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"fabrino-server/models"
	"fabrino-server/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProductWriter struct {
	mock.Mock
}

func (m *mockProductWriter) InsertProduct(ctx context.Context, in models.ProductInput) error {
	return m.Called(in).Error(0)
}

func (m *mockProductWriter) UpdateProduct(ctx context.Context, id string, in models.ProductInput) error {
	return m.Called(id, in).Error(0)
}

func (m *mockProductWriter) DeleteProduct(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

type fakeImages struct {
	url     string
	err     error
	removed []string
}

func (f *fakeImages) Put(ctx context.Context, img ImageUpload) (string, error) {
	return f.url, f.err
}

func (f *fakeImages) Remove(ctx context.Context, url string) error {
	f.removed = append(f.removed, url)
	return nil
}

func liveCatalogue(t *testing.T) (*Catalogue, *stubLister) {
	t.Helper()
	lister := &stubLister{records: []models.ProductRecord{{
		ID:                 json.RawMessage(`"p1"`),
		Name:               sp("Orbit Lamp"),
		Category:           sp("Surprise"),
		Price:              fp(90),
		Image:              sp("https://cdn.example.com/orbit.png"),
		CustomizableFields: json.RawMessage(`["Date"]`),
	}}}
	c := NewCatalogue(lister)
	require.NoError(t, c.Fetch(context.Background()))
	return c, lister
}

func validInput() models.ProductInput {
	return models.ProductInput{Name: "Orbit Lamp", Category: models.IntentSurprise, Price: 90}
}

func TestSaveInsertsWithDefaultImage(t *testing.T) {
	catalogue, lister := liveCatalogue(t)
	store := new(mockProductWriter)
	store.On("InsertProduct", mock.MatchedBy(func(in models.ProductInput) bool {
		return in.Image == models.DefaultProductImage && in.CustomizableFields != nil
	})).Return(nil)

	editor := NewCatalogueEditor(store, nil, catalogue, "products")
	_, err := editor.Save(context.Background(), "", validInput(), nil)
	require.NoError(t, err)

	store.AssertExpectations(t)
	assert.Equal(t, 2, lister.calls)
}

func TestSaveUploadsImageThenUpdates(t *testing.T) {
	catalogue, _ := liveCatalogue(t)
	store := new(mockProductWriter)
	store.On("UpdateProduct", "p1", mock.MatchedBy(func(in models.ProductInput) bool {
		return in.Image == "https://cdn.example.com/new.png"
	})).Return(nil)

	editor := NewCatalogueEditor(store, &fakeImages{url: "https://cdn.example.com/new.png"}, catalogue, "products")
	saved, err := editor.Save(context.Background(), "p1", validInput(), &ImageUpload{Filename: "new.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/new.png", saved.Image)
	store.AssertExpectations(t)
}

func TestSaveUploadFailureIsTranslated(t *testing.T) {
	catalogue, _ := liveCatalogue(t)
	store := new(mockProductWriter)
	images := &fakeImages{err: &supabase.StorageError{StatusCode: 404, Code: "Bucket not found"}}

	editor := NewCatalogueEditor(store, images, catalogue, "products")
	_, err := editor.Save(context.Background(), "", validInput(), &ImageUpload{Filename: "x.jpg"})

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, UploadBucketNotFound, uerr.Kind)
	store.AssertNotCalled(t, "InsertProduct", mock.Anything)
}

func TestSaveValidatesInput(t *testing.T) {
	editor := NewCatalogueEditor(new(mockProductWriter), nil, NewCatalogue(nil), "products")

	for _, in := range []models.ProductInput{
		{Category: models.IntentBirthday},
		{Name: "x", Category: "Holiday"},
		{Name: "x", Category: models.IntentBirthday, Price: -1},
	} {
		_, err := editor.Save(context.Background(), "", in, nil)
		assert.ErrorIs(t, err, ErrInvalidProduct)
	}
}

func TestEditorWithoutBackend(t *testing.T) {
	editor := NewCatalogueEditor(nil, nil, NewCatalogue(nil), "products")
	_, err := editor.Save(context.Background(), "", validInput(), nil)
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.ErrorIs(t, editor.Delete(context.Background(), "1"), ErrNoBackend)

	_, err = editor.Upload(context.Background(), ImageUpload{})
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestDeleteRemovesImage(t *testing.T) {
	catalogue, _ := liveCatalogue(t)
	store := new(mockProductWriter)
	store.On("DeleteProduct", "p1").Return(nil)
	images := &fakeImages{}

	editor := NewCatalogueEditor(store, images, catalogue, "products")
	require.NoError(t, editor.Delete(context.Background(), "p1"))
	assert.Equal(t, []string{"https://cdn.example.com/orbit.png"}, images.removed)
}

func TestDeleteFailureKeepsImage(t *testing.T) {
	catalogue, _ := liveCatalogue(t)
	store := new(mockProductWriter)
	store.On("DeleteProduct", "p1").Return(errors.New("fk violation"))
	images := &fakeImages{}

	editor := NewCatalogueEditor(store, images, catalogue, "products")
	assert.Error(t, editor.Delete(context.Background(), "p1"))
	assert.Empty(t, images.removed)
}

func TestAddAndRemoveFieldOnProduct(t *testing.T) {
	catalogue, _ := liveCatalogue(t)
	store := new(mockProductWriter)
	store.On("UpdateProduct", "p1", mock.MatchedBy(func(in models.ProductInput) bool {
		return len(in.CustomizableFields) == 2 && in.CustomizableFields[1] == "Engraving"
	})).Return(nil).Once()
	store.On("UpdateProduct", "p1", mock.MatchedBy(func(in models.ProductInput) bool {
		return len(in.CustomizableFields) == 0
	})).Return(nil).Once()

	editor := NewCatalogueEditor(store, nil, catalogue, "products")
	p, err := editor.AddField(context.Background(), "p1", "  Engraving ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Engraving"}, p.CustomizableFields)

	_, err = editor.AddField(context.Background(), "p1", "Date")
	assert.ErrorIs(t, err, ErrDuplicateField)

	p, err = editor.RemoveField(context.Background(), "p1", "Date")
	require.NoError(t, err)
	assert.Empty(t, p.CustomizableFields)

	_, err = editor.AddField(context.Background(), "missing", "X")
	assert.ErrorIs(t, err, ErrProductNotFound)
	store.AssertExpectations(t)
}

func TestAddCustomField(t *testing.T) {
	fields := []string{"Date"}

	out, err := AddCustomField(fields, "  Name ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Name"}, out)
	assert.Equal(t, []string{"Date"}, fields)

	_, err = AddCustomField(fields, "   ")
	assert.ErrorIs(t, err, ErrBlankField)

	_, err = AddCustomField(fields, " Date")
	assert.ErrorIs(t, err, ErrDuplicateField)
}

func TestRemoveCustomField(t *testing.T) {
	assert.Equal(t, []string{"A", "C"}, RemoveCustomField([]string{"A", "B", "C"}, "B"))
	assert.Equal(t, []string{"A"}, RemoveCustomField([]string{"A"}, "Z"))
	assert.Empty(t, RemoveCustomField(nil, "A"))
}
