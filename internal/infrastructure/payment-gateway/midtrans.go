package paymentgateway

import (
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

func CreateSnapClient(serverKey string, production bool) *snap.Client {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	client := &snap.Client{}
	client.New(serverKey, env)

	return client
}
