package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	orderModel "symbiotic_city/internal/domain/order/model"
	"symbiotic_city/internal/domain/payment/gateway"

	"github.com/google/uuid"
)

// 并发重放同一条 payment_intent.succeeded 事件，验证回调幂等：
// 无论投递多少次，数据库中每个卖家只应出现一张订单
var (
	baseURL = flag.String("url", "http://localhost:8080", "server base URL")
	secret  = flag.String("secret", "", "webhook signing secret (whsec_...)")
	total   = flag.Int("n", 200, "number of deliveries")
	workers = flag.Int("c", 50, "concurrent senders")
	buyer   = flag.String("buyer", "", "buyer id, random when empty")
	sellers = flag.Int("sellers", 2, "number of sellers in the cart")
)

var httpClient *http.Client

func init() {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 500
	t.MaxIdleConnsPerHost = 500
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

func main() {
	flag.Parse()
	if *secret == "" {
		fmt.Println("缺少 -secret 参数")
		return
	}

	payload, intentID, err := buildEvent()
	if err != nil {
		fmt.Printf("构造事件失败: %v\n", err)
		return
	}

	fmt.Printf("开始回放：%d 次投递，%d 并发 (PaymentIntent: %s)...\n", *total, *workers, intentID)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[int]int)
		jobs     = make(chan struct{})
	)

	start := time.Now()
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				code := deliver(payload)
				mu.Lock()
				statuses[code]++
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < *total; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	duration := time.Since(start)

	codes := make([]int, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("回放结束，耗时: %v\n", duration)
	fmt.Printf("总投递数: %d\n", *total)
	fmt.Printf("QPS: %.2f\n", float64(*total)/duration.Seconds())
	for _, code := range codes {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "network error"
		}
		fmt.Printf("HTTP %s: %d\n", label, statuses[code])
	}
	fmt.Printf("预期订单数: %d (GET /payments/status/%s 可核对)\n", *sellers, intentID)
	fmt.Println("--------------------------------------------------")
}

func buildEvent() ([]byte, string, error) {
	buyerID := *buyer
	if buyerID == "" {
		buyerID = uuid.NewString()
	}

	var (
		cart   []orderModel.CartItem
		amount int64
	)
	for i := 0; i < *sellers; i++ {
		item := orderModel.CartItem{
			SellerID:       uuid.NewString(),
			ProductID:      uuid.NewString(),
			UnitPriceCents: int64(1000 * (i + 1)),
			Quantity:       1,
		}
		cart = append(cart, item)
		amount += item.UnitPriceCents * int64(item.Quantity)
	}

	meta, err := gateway.IntentMetadata{BuyerID: buyerID, CartItems: cart}.Encode()
	if err != nil {
		return nil, "", err
	}

	intentID := "pi_replay_" + uuid.NewString()[:8]
	object, err := json.Marshal(map[string]interface{}{
		"id":                   intentID,
		"object":               "payment_intent",
		"amount":               amount,
		"currency":             "usd",
		"payment_method_types": []string{"card"},
		"metadata":             meta,
	})
	if err != nil {
		return nil, "", err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_replay_" + uuid.NewString()[:8],
		"object":      "event",
		"api_version": "2020-08-27",
		"type":        gateway.TypePaymentSucceeded,
		"data":        map[string]json.RawMessage{"object": object},
	})
	if err != nil {
		return nil, "", err
	}
	return payload, intentID, nil
}

// deliver 每次投递重新签名，返回 HTTP 状态码，网络错误记为 0
func deliver(payload []byte) int {
	req, err := http.NewRequest(http.MethodPost, *baseURL+"/payments/webhook", bytes.NewReader(payload))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", gateway.SignPayload(payload, *secret, time.Now()))

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}
