package schema

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}

type CreateOrderReq struct {
	UserId           string `json:"userId"`
	RecipientAddress string `json:"recipientAddress"`
	Amount           string `json:"amount"`
	TokenSymbol      string `json:"tokenSymbol"`
	ChainId          int64  `json:"chainId"`
	PaymentMethod    string `json:"paymentMethod"`
}

type VerifyReq struct {
	OrderId         string `json:"orderId"`
	TransactionHash string `json:"transactionHash"`
	UserId          string `json:"userId"`
}

type RespPaymentURI struct {
	OrderId    string `json:"orderId"`
	PaymentURI string `json:"paymentUri"`
}

type MonitorReq struct {
	MaxAttempts     int   `json:"maxAttempts,omitempty"`
	PollingInterval int64 `json:"pollingInterval,omitempty"` // ms
}

type RespMonitorCounts struct {
	Scheduled int `json:"scheduled"`
	Running   int `json:"running"`
}
