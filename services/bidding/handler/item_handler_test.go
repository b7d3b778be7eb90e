package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	bidding "auction-backend/internal/biddingService"
	"auction-backend/internal/biddingerrors"
	model "auction-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// createInputEq matches a CreateItemInput, comparing the price by value
type createInputEq struct{ want bidding.CreateItemInput }

func (m createInputEq) Matches(x interface{}) bool {
	in, ok := x.(bidding.CreateItemInput)
	if !ok {
		return false
	}
	return in.Title == m.want.Title &&
		in.Description == m.want.Description &&
		in.ImageURL == m.want.ImageURL &&
		in.DurationHours == m.want.DurationHours &&
		in.StartingPrice.Equal(m.want.StartingPrice)
}

func (m createInputEq) String() string { return "matches item " + m.want.Title }

func TestCreateItemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	end := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:        "success",
			requestBody: `{"title":"Lamp","description":"brass","starting_price":"10.00","duration":24}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					CreateItem(gomock.Any(), "seller1", createInputEq{bidding.CreateItemInput{
						Title:         "Lamp",
						Description:   "brass",
						StartingPrice: decimal.NewFromInt(10),
						DurationHours: 24,
					}}).
					Return(model.Item{
						ID:            "item1",
						Title:         "Lamp",
						StartingPrice: decimal.NewFromInt(10),
						CurrentPrice:  decimal.NewFromInt(10),
						SellerID:      "seller1",
						Status:        model.ItemActive,
						EndTime:       end,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "item created successfully",
		},
		{
			name:           "missing_title",
			requestBody:    `{"starting_price":10}`,
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   biddingerrors.CodeValidation,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "negative_duration",
			requestBody:    `{"title":"Lamp","starting_price":10,"duration":-1}`,
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   biddingerrors.CodeValidation,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "service_rejects_price",
			requestBody: `{"title":"Lamp","starting_price":0}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().CreateItem(gomock.Any(), "seller1", gomock.Any()).
					Return(model.Item{}, biddingerrors.ErrValidation)
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   biddingerrors.CodeValidation,
			expectedMsg:    "invalid request details",
		},
		{
			name:        "store_unavailable",
			requestBody: `{"title":"Lamp","starting_price":5}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().CreateItem(gomock.Any(), "seller1", gomock.Any()).
					Return(model.Item{}, errors.Join(biddingerrors.ErrStoreUnavailable, errors.New("disk full")))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   biddingerrors.CodeStoreUnavailable,
			expectedMsg:    "service temporarily unavailable",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockBiddingServiceInterface(ctrl)
			tc.mockSetup(mockService)

			router := gin.New()
			router.POST("/api/items", withCaller("seller1"), NewBiddingHandler(mockService).CreateItemHandler)

			w, resp := doRequest(t, router, http.MethodPost, "/api/items", tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Contains(t, resp.Message, tc.expectedMsg)
			require.Equal(t, tc.expectedCode, resp.Code)
		})
	}
}

func TestListItemsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockService := NewMockBiddingServiceInterface(ctrl)
	gomock.InOrder(
		mockService.EXPECT().ListActiveItems(gomock.Any()).Return([]model.ItemSummary{
			{Item: model.Item{ID: "item1", Title: "Lamp", CurrentPrice: decimal.NewFromInt(12)}, SellerName: "sam", BidCount: 2},
		}, nil),
		mockService.EXPECT().ListActiveItems(gomock.Any()).Return(nil, nil),
	)

	router := gin.New()
	router.GET("/api/items", NewBiddingHandler(mockService).ListItemsHandler)

	w, resp := doRequest(t, router, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	require.Equal(t, "sam", items[0]["seller_name"])
	require.Equal(t, float64(2), items[0]["bid_count"])
	require.Equal(t, "12", items[0]["current_price"])

	// an empty listing is an array, never null
	w, resp = doRequest(t, router, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, string(resp.Data))
}

func TestGetItemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		itemID         string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "found",
			itemID: "item1",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetItemDetail(gomock.Any(), "item1").Return(model.ItemDetail{
					Item:       model.Item{ID: "item1", Title: "Lamp"},
					SellerName: "sam",
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "not_found",
			itemID: "missing",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetItemDetail(gomock.Any(), "missing").Return(model.ItemDetail{}, biddingerrors.ErrItemNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   biddingerrors.CodeItemNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockBiddingServiceInterface(ctrl)
			tc.mockSetup(mockService)

			router := gin.New()
			router.GET("/api/items/:item_id", NewBiddingHandler(mockService).GetItemHandler)

			w, resp := doRequest(t, router, http.MethodGet, "/api/items/"+tc.itemID, "")
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedCode, resp.Code)

			if tc.expectedStatus == http.StatusOK {
				var detail map[string]any
				require.NoError(t, json.Unmarshal(resp.Data, &detail))
				require.Equal(t, "sam", detail["seller_name"])
				require.Equal(t, []any{}, detail["bids"])
			}
		})
	}
}

func TestCloseItemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "seller_closes",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().CloseItem(gomock.Any(), "item1", "seller1").
					Return(model.Item{ID: "item1", SellerID: "seller1", Status: model.ItemClosed}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not_seller",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().CloseItem(gomock.Any(), "item1", "seller1").Return(model.Item{}, biddingerrors.ErrNotSeller)
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   biddingerrors.CodeNotSeller,
		},
		{
			name: "already_closed",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().CloseItem(gomock.Any(), "item1", "seller1").Return(model.Item{}, biddingerrors.ErrItemClosed)
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   biddingerrors.CodeItemClosed,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockBiddingServiceInterface(ctrl)
			tc.mockSetup(mockService)

			router := gin.New()
			router.POST("/api/items/:item_id/close", withCaller("seller1"), NewBiddingHandler(mockService).CloseItemHandler)

			w, resp := doRequest(t, router, http.MethodPost, "/api/items/item1/close", "")
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedCode, resp.Code)
		})
	}
}
