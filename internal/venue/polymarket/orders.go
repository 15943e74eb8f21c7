package polymarket

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/venue"
	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Signer builds EIP-712 signed orders and talks to the authenticated CLOB
// endpoints using HMAC L2 headers.
type Signer struct {
	baseURL       string
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string // EOA address (signer)
	proxyAddress  string // proxy address (maker/funder)
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	httpClient    *http.Client
	logger        *zap.Logger
}

// SignerConfig holds credentials for the authenticated CLOB surface.
type SignerConfig struct {
	BaseURL       string
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger
}

// NewSigner creates a new order signer.
func NewSigner(cfg *SignerConfig) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, _ := privateKey.Public().(*ecdsa.PublicKey)
	address := crypto.PubkeyToAddress(*publicKey).Hex()

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	return &Signer{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        cfg.Logger,
	}, nil
}

// signedOrderJSON is the CLOB wire format for a signed order.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	ErrMsg  string `json:"errorMsg"`
}

// SubmitOrder signs and submits a single buy or sell order.
func (s *Signer) SubmitOrder(ctx context.Context, req *venue.OrderRequest) (*orderResponse, error) {
	makerAddress := s.address
	if s.proxyAddress != "" {
		makerAddress = s.proxyAddress
	}

	price, err := snapToTick(req.Price, req.TickSize)
	if err != nil {
		return nil, err
	}
	side := model.BUY
	makerAmount := usdToRawAmount(price * req.Size)
	takerAmount := usdToRawAmount(req.Size)
	if req.Side == types.SideSell {
		side = model.SELL
		makerAmount = usdToRawAmount(req.Size)
		takerAmount = usdToRawAmount(price * req.Size)
	}

	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       req.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          side,
		FeeRateBps:    strconv.Itoa(req.FeeRateBps),
		Nonce:         "0",
		Signer:        s.address,
		Expiration:    "0",
		SignatureType: s.signatureType,
	}

	contract := model.CTFExchange
	if req.NegRisk {
		contract = model.NegRiskCTFExchange
	}

	signedOrder, err := s.orderBuilder.BuildSignedOrder(s.privateKey, orderData, contract)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	sideStr := "BUY"
	if side == model.SELL {
		sideStr = "SELL"
	}

	jsonOrder := signedOrderJSON{
		Salt:          signedOrder.Salt.Int64(),
		Maker:         signedOrder.Maker.Hex(),
		Signer:        signedOrder.Signer.Hex(),
		Taker:         signedOrder.Taker.Hex(),
		TokenID:       signedOrder.TokenId.String(),
		MakerAmount:   signedOrder.MakerAmount.String(),
		TakerAmount:   signedOrder.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    signedOrder.Expiration.String(),
		Nonce:         signedOrder.Nonce.String(),
		FeeRateBps:    signedOrder.FeeRateBps.String(),
		SignatureType: int(signedOrder.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(signedOrder.Signature),
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = "GTC"
	}

	// "owner" is the API key, not the maker address.
	orderRequest := map[string]any{
		"order":     jsonOrder,
		"owner":     s.apiKey,
		"orderType": tif,
	}

	body, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	raw, err := s.doAuthed(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("parse order response: %v", err),
		}
	}

	if resp.ErrMsg != "" {
		return nil, classifyCLOBError(resp.ErrMsg, resp.OrderID)
	}

	return &resp, nil
}

// CancelOrder cancels an order by id.
func (s *Signer) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}

	_, err = s.doAuthed(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// GetOrder returns the raw order record from the data endpoint.
func (s *Signer) GetOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	raw, err := s.doAuthed(ctx, http.MethodGet, "/data/order/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return raw, nil
}

// doAuthed issues one request carrying the HMAC-SHA256 L2 headers.
func (s *Signer) doAuthed(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	payload := timestamp + method + path + string(body)

	// The CLOB secret is URL-safe base64.
	secretBytes, err := base64.URLEncoding.DecodeString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(payload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", s.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", s.passphrase)
	req.Header.Set("POLY_ADDRESS", s.address)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode >= 500 {
		return nil, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindRetryable,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, classifyCLOBError(string(raw), "")
	}

	return raw, nil
}

func classifyCLOBError(message, orderID string) error {
	ve := &types.VenueError{
		Venue:   types.VenuePolymarket,
		Kind:    types.ErrKindPermanent,
		Message: message,
		OrderID: orderID,
	}

	if strings.Contains(message, types.ErrNotEnoughBalance) {
		ve.Kind = types.ErrKindBalanceExhausted
		ve.Code = types.ErrNotEnoughBalance
	} else if types.IsBalanceExhausted(ve) {
		ve.Kind = types.ErrKindBalanceExhausted
	}

	return ve
}

// snapToTick rounds the order price onto the venue tick grid. The CLOB
// rejects prices that are not tick multiples or fall outside
// [tick, 1-tick].
func snapToTick(price, tick float64) (float64, error) {
	price = types.RoundPrice(price)
	if tick <= 0 {
		return price, nil
	}

	snapped := types.RoundPrice(math.Round(price/tick) * tick)
	if snapped < tick-1e-9 || snapped > 1-tick+1e-9 {
		return 0, &types.VenueError{
			Venue:   types.VenuePolymarket,
			Kind:    types.ErrKindPermanent,
			Message: fmt.Sprintf("price %.3f outside tick range [%g, %g]", price, tick, 1-tick),
		}
	}
	return snapped, nil
}

func usdToRawAmount(usd float64) string {
	return strconv.FormatInt(int64(usd*1e6), 10)
}
