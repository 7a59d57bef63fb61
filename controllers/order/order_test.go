package orderController

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/utils"
	orderValidator "lms/validators/order"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.AppConfig = &config.Config{
		Port:               "3000",
		JWTKey:             "test-jwt-secret",
		SaltRound:          4,
		PayGateChecksumKey: "test-checksum-key",
		PayGateReturnURL:   "http://localhost:3000/payment/success",
		PayGateCancelURL:   "http://localhost:3000/payment/cancel",
		PendingOrderTTLMin: 30,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.Payment{},
		&models.Transaction{},
	))

	database.Database = database.DbInstance{Db: db}
	return db
}

func newTestApp() *fiber.App {
	app := fiber.New()
	orderGroup := app.Group("/orders")
	orderGroup.Post("/", orderValidator.CreateOrder(), middleware.JWTMiddleware, CreateOrder)
	orderGroup.Get("/:orderCode", orderValidator.OrderCode(), middleware.JWTMiddleware, GetOrderStatus)
	orderGroup.Post("/:orderCode/cancel", orderValidator.OrderCode(), middleware.JWTMiddleware, CancelOrder)
	return app
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Name: "Test Buyer", Email: email, Password: "irrelevant"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, title string, price int64) models.Course {
	t.Helper()
	course := models.Course{Title: title, Price: price, Status: "ACTIVE", IsPublished: true}
	require.NoError(t, db.Create(&course).Error)
	return course
}

// seedPendingOrder writes the three-record pending order directly, the same
// shape CreateOrder commits
func seedPendingOrder(t *testing.T, db *gorm.DB, user models.User, courses ...models.Course) models.Transaction {
	t.Helper()

	var amount int64
	for _, course := range courses {
		amount += course.Price
	}

	payment := models.Payment{UserID: user.ID, Amount: amount, Status: models.PaymentStatusPending}
	require.NoError(t, db.Create(&payment).Error)

	for _, course := range courses {
		enrollment := models.Enrollment{
			UserID:    user.ID,
			CourseID:  course.ID,
			PaymentID: payment.ID,
			Status:    models.EnrollmentStatusPending,
		}
		require.NoError(t, db.Create(&enrollment).Error)
	}

	transaction := models.Transaction{
		UserID:      user.ID,
		OrderCode:   utils.GenerateOrderCode(),
		PaymentID:   payment.ID,
		Amount:      amount,
		Status:      models.TransactionStatusPending,
		Description: "test order",
	}
	require.NoError(t, db.Create(&transaction).Error)
	require.NoError(t, db.Model(&payment).Update("transaction_id", transaction.ID).Error)

	return transaction
}

func authToken(t *testing.T, user models.User) string {
	t.Helper()
	token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func gatewayStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.test/checkout/abc"}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCreateOrderWritesAllRecordsAtomically(t *testing.T) {
	db := setupTestDB(t)
	config.AppConfig.PayGateBaseURL = gatewayStub(t).URL

	user := seedUser(t, db, "buyer@test.com")
	courseA := seedCourse(t, db, "Go Basics", 200000)
	courseB := seedCourse(t, db, "Advanced Go", 300000)

	app := newTestApp()
	resp, body := doJSON(t, app, "POST", "/orders/", authToken(t, user), fiber.Map{
		"courseIds":   []uint{courseA.ID, courseB.ID},
		"description": "two course bundle",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "https://pay.test/checkout/abc", data["checkoutUrl"])
	assert.EqualValues(t, 500000, data["amount"])
	assert.NotZero(t, data["orderCode"])

	var enrollments []models.Enrollment
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&enrollments).Error)
	require.Len(t, enrollments, 2)
	for _, enrollment := range enrollments {
		assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	}

	var payment models.Payment
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&payment).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.EqualValues(t, 500000, payment.Amount)

	var transaction models.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&transaction).Error)
	assert.Equal(t, models.TransactionStatusPending, transaction.Status)
	assert.Equal(t, payment.ID, transaction.PaymentID)
	assert.Equal(t, transaction.ID, payment.TransactionID)
	assert.Nil(t, transaction.GatewayTxnID)
}

func TestCreateOrderGatewayFailureKeepsPendingOrder(t *testing.T) {
	db := setupTestDB(t)
	config.AppConfig.PayGateBaseURL = "http://127.0.0.1:1" // nothing listens here

	user := seedUser(t, db, "buyer@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)

	app := newTestApp()
	resp, body := doJSON(t, app, "POST", "/orders/", authToken(t, user), fiber.Map{
		"courseIds": []uint{course.ID},
	})

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.NotZero(t, data["orderCode"])

	// Local state survived the gateway failure
	var transaction models.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&transaction).Error)
	assert.Equal(t, models.TransactionStatusPending, transaction.Status)

	var count int64
	db.Model(&models.Enrollment{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrderRejectsEmptyCourseList(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "buyer@test.com")

	app := newTestApp()
	resp, _ := doJSON(t, app, "POST", "/orders/", authToken(t, user), fiber.Map{
		"courseIds": []uint{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrderRejectsUnknownCourse(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "buyer@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)

	app := newTestApp()
	resp, _ := doJSON(t, app, "POST", "/orders/", authToken(t, user), fiber.Map{
		"courseIds": []uint{course.ID, course.ID + 99},
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrderRejectsRepeatPurchase(t *testing.T) {
	db := setupTestDB(t)
	config.AppConfig.PayGateBaseURL = gatewayStub(t).URL

	user := seedUser(t, db, "buyer@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)
	seedPendingOrder(t, db, user, course)

	app := newTestApp()
	resp, _ := doJSON(t, app, "POST", "/orders/", authToken(t, user), fiber.Map{
		"courseIds": []uint{course.ID},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCompleteOrderCascadesAndIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "buyer@test.com")
	courseA := seedCourse(t, db, "Go Basics", 200000)
	courseB := seedCourse(t, db, "Advanced Go", 300000)
	transaction := seedPendingOrder(t, db, user, courseA, courseB)

	won, err := CompleteOrder(db, transaction.OrderCode, "GW-REF-1", []byte(`{"probe":true}`))
	require.NoError(t, err)
	assert.True(t, won)

	var after models.Transaction
	require.NoError(t, db.Where("order_code = ?", transaction.OrderCode).First(&after).Error)
	assert.Equal(t, models.TransactionStatusCompleted, after.Status)
	require.NotNil(t, after.GatewayTxnID)
	assert.Equal(t, "GW-REF-1", *after.GatewayTxnID)

	var payment models.Payment
	require.NoError(t, db.First(&payment, transaction.PaymentID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.PaymentDate)

	var enrollments []models.Enrollment
	require.NoError(t, db.Where("payment_id = ?", transaction.PaymentID).Find(&enrollments).Error)
	require.Len(t, enrollments, 2)
	for _, enrollment := range enrollments {
		assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	}

	// Duplicate delivery must be a zero-write no-op
	won, err = CompleteOrder(db, transaction.OrderCode, "GW-REF-2", nil)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, db.Where("order_code = ?", transaction.OrderCode).First(&after).Error)
	require.NotNil(t, after.GatewayTxnID)
	assert.Equal(t, "GW-REF-1", *after.GatewayTxnID, "duplicate must not overwrite the original reference")
}

func TestCompleteOrderUnknownCodeIsNoOp(t *testing.T) {
	db := setupTestDB(t)

	won, err := CompleteOrder(db, 999999999, "GW-REF", nil)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestCancelOrderByOwner(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "buyer@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)
	transaction := seedPendingOrder(t, db, user, course)

	app := newTestApp()
	resp, _ := doJSON(t, app, "POST", fmt.Sprintf("/orders/%d/cancel", transaction.OrderCode), authToken(t, user), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after models.Transaction
	require.NoError(t, db.Where("order_code = ?", transaction.OrderCode).First(&after).Error)
	assert.Equal(t, models.TransactionStatusCancelled, after.Status)

	var payment models.Payment
	require.NoError(t, db.First(&payment, transaction.PaymentID).Error)
	assert.Equal(t, models.PaymentStatusCancelled, payment.Status)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("payment_id = ?", transaction.PaymentID).First(&enrollment).Error)
	assert.Equal(t, models.EnrollmentStatusCancelled, enrollment.Status)
}

func TestCancelOrderForbiddenForNonOwner(t *testing.T) {
	db := setupTestDB(t)
	owner := seedUser(t, db, "owner@test.com")
	stranger := seedUser(t, db, "stranger@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)
	transaction := seedPendingOrder(t, db, owner, course)

	app := newTestApp()
	resp, _ := doJSON(t, app, "POST", fmt.Sprintf("/orders/%d/cancel", transaction.OrderCode), authToken(t, stranger), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var after models.Transaction
	require.NoError(t, db.Where("order_code = ?", transaction.OrderCode).First(&after).Error)
	assert.Equal(t, models.TransactionStatusPending, after.Status)
}

func TestCancelAfterCompletionIsRejected(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "buyer@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)
	transaction := seedPendingOrder(t, db, user, course)

	won, err := CompleteOrder(db, transaction.OrderCode, "GW-REF-1", nil)
	require.NoError(t, err)
	require.True(t, won)

	app := newTestApp()
	resp, _ := doJSON(t, app, "POST", fmt.Sprintf("/orders/%d/cancel", transaction.OrderCode), authToken(t, user), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var after models.Transaction
	require.NoError(t, db.Where("order_code = ?", transaction.OrderCode).First(&after).Error)
	assert.Equal(t, models.TransactionStatusCompleted, after.Status)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("payment_id = ?", transaction.PaymentID).First(&enrollment).Error)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
}

func TestGetOrderStatus(t *testing.T) {
	db := setupTestDB(t)
	owner := seedUser(t, db, "owner@test.com")
	stranger := seedUser(t, db, "stranger@test.com")
	course := seedCourse(t, db, "Go Basics", 200000)
	transaction := seedPendingOrder(t, db, owner, course)

	app := newTestApp()

	resp, body := doJSON(t, app, "GET", fmt.Sprintf("/orders/%d", transaction.OrderCode), authToken(t, owner), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, string(models.TransactionStatusPending), data["status"])

	resp, _ = doJSON(t, app, "GET", fmt.Sprintf("/orders/%d", transaction.OrderCode), authToken(t, stranger), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/orders/123456789", authToken(t, owner), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Complete and Cancel race on the same conditional update; exactly one side
// may win and the loser must not disturb the winner's terminal state.
func TestConcurrentCompleteAndCancel(t *testing.T) {
	for i := 0; i < 20; i++ {
		db := setupTestDB(t)
		user := seedUser(t, db, fmt.Sprintf("buyer%d@test.com", i))
		course := seedCourse(t, db, "Go Basics", 200000)
		transaction := seedPendingOrder(t, db, user, course)

		var completeWon, cancelWon bool
		var completeErr, cancelErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			completeWon, completeErr = CompleteOrder(db, transaction.OrderCode, "GW-RACE", nil)
		}()
		go func() {
			defer wg.Done()
			cancelWon, cancelErr = CancelOrderCascade(db, transaction.OrderCode)
		}()
		wg.Wait()

		require.NoError(t, completeErr)
		require.NoError(t, cancelErr)

		require.NotEqual(t, completeWon, cancelWon, "exactly one writer must win")

		var after models.Transaction
		require.NoError(t, db.Where("order_code = ?", transaction.OrderCode).First(&after).Error)

		var enrollment models.Enrollment
		require.NoError(t, db.Where("payment_id = ?", transaction.PaymentID).First(&enrollment).Error)

		var payment models.Payment
		require.NoError(t, db.First(&payment, transaction.PaymentID).Error)

		if completeWon {
			assert.Equal(t, models.TransactionStatusCompleted, after.Status)
			assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
			assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
		} else {
			assert.Equal(t, models.TransactionStatusCancelled, after.Status)
			assert.Equal(t, models.PaymentStatusCancelled, payment.Status)
			assert.Equal(t, models.EnrollmentStatusCancelled, enrollment.Status)
		}
	}
}
