package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createUser(t *testing.T, testDB *gorm.DB, email string) *model.User {
	user := &model.User{Email: email, Name: "Test User", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

// createShirt seeds a product with one "Size" option type (S, M).
func createShirt(t *testing.T, testDB *gorm.DB, stock, sizeStock int) (*model.Product, *model.OptionType) {
	product := &model.Product{Name: "Shirt", Price: 20000, StockQuantity: stock}
	require.NoError(t, testDB.Create(product).Error)

	size := &model.OptionType{
		ProductID: product.ID,
		Name:      "Size",
		Values: []model.OptionValue{
			{ProductID: product.ID, Value: "S", StockQuantity: sizeStock},
			{ProductID: product.ID, Value: "M", AdditionalPrice: 1000, StockQuantity: sizeStock},
		},
	}
	require.NoError(t, testDB.Create(size).Error)
	return product, size
}
