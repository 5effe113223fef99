package sdk

import (
	"errors"
	"fmt"

	"github.com/web3pay/paygate/schema"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
)

type PayGateCli struct {
	SCli *gentleman.Client
}

func New(payGateUrl string) *PayGateCli {
	return &PayGateCli{
		SCli: gentleman.New().URL(payGateUrl),
	}
}

func (a *PayGateCli) CreateOrder(req schema.CreateOrderReq) (schema.Order, error) {
	r := a.SCli.Post()
	r.AddPath("/order")
	r.Use(body.JSON(req))
	resp, err := r.Send()
	if err != nil {
		return schema.Order{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.Order{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	ord := schema.Order{}
	err = resp.JSON(&ord)
	return ord, err
}

func (a *PayGateCli) GetOrder(orderId string) (schema.Order, error) {
	r := a.SCli.Get()
	r.AddPath(fmt.Sprintf("/order/%s", orderId))
	resp, err := r.Send()
	if err != nil {
		return schema.Order{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.Order{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	ord := schema.Order{}
	err = resp.JSON(&ord)
	return ord, err
}

func (a *PayGateCli) GetPaymentURI(orderId string) (schema.RespPaymentURI, error) {
	r := a.SCli.Get()
	r.AddPath(fmt.Sprintf("/order/%s/payment-uri", orderId))
	resp, err := r.Send()
	if err != nil {
		return schema.RespPaymentURI{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.RespPaymentURI{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	uri := schema.RespPaymentURI{}
	err = resp.JSON(&uri)
	return uri, err
}

func (a *PayGateCli) GetUserOrders(userId string, page, size int) ([]schema.Order, error) {
	r := a.SCli.Get()
	r.AddPath(fmt.Sprintf("/orders/%s", userId))
	r.SetQuery("page", fmt.Sprintf("%d", page))
	r.SetQuery("size", fmt.Sprintf("%d", size))
	resp, err := r.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	ords := make([]schema.Order, 0)
	err = resp.JSON(&ords)
	return ords, err
}

func (a *PayGateCli) VerifyPayment(req schema.VerifyReq) (schema.VerificationResult, error) {
	r := a.SCli.Post()
	r.AddPath("/payment/verify")
	r.Use(body.JSON(req))
	resp, err := r.Send()
	if err != nil {
		return schema.VerificationResult{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.VerificationResult{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	result := schema.VerificationResult{}
	err = resp.JSON(&result)
	return result, err
}

func (a *PayGateCli) AutoDetect(orderId string) (schema.DetectResult, error) {
	r := a.SCli.Get()
	r.AddPath(fmt.Sprintf("/payment/auto-detect/%s", orderId))
	resp, err := r.Send()
	if err != nil {
		return schema.DetectResult{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.DetectResult{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	result := schema.DetectResult{}
	err = resp.JSON(&result)
	return result, err
}

func (a *PayGateCli) GetVerificationHistory(orderId string) ([]schema.HashRecord, error) {
	r := a.SCli.Get()
	r.AddPath(fmt.Sprintf("/payment/history/%s", orderId))
	resp, err := r.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	records := make([]schema.HashRecord, 0)
	err = resp.JSON(&records)
	return records, err
}

func (a *PayGateCli) StartMonitor(orderId string, req schema.MonitorReq) (schema.MonitorJob, error) {
	r := a.SCli.Post()
	r.AddPath(fmt.Sprintf("/monitor/%s", orderId))
	r.Use(body.JSON(req))
	resp, err := r.Send()
	if err != nil {
		return schema.MonitorJob{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.MonitorJob{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	job := schema.MonitorJob{}
	err = resp.JSON(&job)
	return job, err
}

func (a *PayGateCli) GetMonitor(orderId string) (schema.MonitorJob, error) {
	r := a.SCli.Get()
	r.AddPath(fmt.Sprintf("/monitor/%s", orderId))
	resp, err := r.Send()
	if err != nil {
		return schema.MonitorJob{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.MonitorJob{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	job := schema.MonitorJob{}
	err = resp.JSON(&job)
	return job, err
}

func (a *PayGateCli) KillMonitor(orderId string) error {
	r := a.SCli.Post()
	r.AddPath(fmt.Sprintf("/monitor/kill/%s", orderId))
	resp, err := r.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return nil
}
