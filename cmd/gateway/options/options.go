package options

import (
	"fmt"
	"time"

	"dooyagateway/cmd/gateway/config"
	"dooyagateway/pkg/device"
	"dooyagateway/pkg/gateway"
	baseoptions "dooyagateway/pkg/generic/options"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

type Options struct {
	Port         string        `json:"port"`
	Wait         time.Duration `json:"graceful-timeout"`
	MqttBroker   string        `json:"mqtt-broker"`
	MqttUsername string        `json:"mqtt-username"`
	MqttPassword string        `json:"mqtt-password"`
	baseoptions.BaseOptions
}

const (
	_defaultPort       = "32200"
	_defaultWait       = 15 * time.Second
	_defaultMqttBroker = "tcp://127.0.0.1:1883"

	mqttConnectTimeout = 5 * time.Second
)

func NewDefaultOptions() *Options {
	return &Options{
		Port:        _defaultPort,
		Wait:        _defaultWait,
		MqttBroker:  _defaultMqttBroker,
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	// refer to node port assignment https://rancher.com/docs/rancher/v2.x/en/installation/requirements/ports/#commonly-used-ports
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.MqttBroker, "mqtt-broker", o.MqttBroker, "MQTT broker url for status publishing - e.g. tcp://127.0.0.1:1883")
	fs.StringVar(&o.MqttUsername, "mqtt-username", o.MqttUsername, "MQTT broker username")
	fs.StringVar(&o.MqttPassword, "mqtt-password", o.MqttPassword, "MQTT broker password")
}

func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	c := &config.Config{}

	gatewayMgr := gateway.NewGatewayManager(stopCh)
	gatewayMgr.Init()
	gatewayMeta, _ := gatewayMgr.GetGatewayMeta()

	mqttClient, err := o.newMqttClient(gatewayMeta.ID)
	if err != nil {
		return nil, err
	}

	deviceMgr := device.NewManager(mqttClient, gatewayMeta, stopCh)
	deviceMgr.Init()

	c.GatewayMgr = gatewayMgr
	c.DeviceMgr = deviceMgr

	return c, nil
}

func (o *Options) newMqttClient(gatewayId string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(o.MqttBroker).
		SetClientID(fmt.Sprintf("dooyagateway-%s", gatewayId)).
		SetUsername(o.MqttUsername).
		SetPassword(o.MqttPassword).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) || token.Error() != nil {
		// keep serving, paho reconnects in the background
		klog.V(1).InfoS("Failed to connect MQTT broker", "broker", o.MqttBroker, "err", token.Error())
	}
	return client, nil
}
