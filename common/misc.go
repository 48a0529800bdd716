package common

import (
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

var serviceInstance string

func NextId(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

func GetServiceName() string {
	name := os.Getenv("SERVICE_NAME")
	if name == "" {
		return "workhub"
	}
	return name
}

func GetServiceInstance() string {
	if serviceInstance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serviceInstance = hostname
	}
	return serviceInstance
}
