package gateway

import (
	"fmt"
	"strconv"
	"time"

	"dooyagateway/pkg/runtime"
	"dooyagateway/pkg/utils/randutil"
	"dooyagateway/pkg/utils/uuidutil"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"k8s.io/klog/v2"
)

type Option func(*Manager)

type Manager struct {
	gatewayMeta *GatewayMeta
	stopCh      <-chan struct{}
}

func NewGatewayManager(stop <-chan struct{}, opts ...Option) *Manager {
	m := &Manager{
		gatewayMeta: &GatewayMeta{},
		stopCh:      stop,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Init() {
	m.gatewayMeta = &GatewayMeta{
		Secret: "",
		ObjectMeta: runtime.ObjectMeta{
			Name:    "dooyagateway",
			ID:      uuidutil.UUID(),
			Version: strconv.FormatUint(randutil.Uint64n(), 10),
			ModTime: time.Now(),
		},
	}
	klog.V(3).InfoS("Gateway information been created automatically", "gatewayId", m.gatewayMeta.ID)
}

func (m *Manager) GetGatewayMeta() (*GatewayMeta, error) {
	return m.gatewayMeta, nil
}

func (m *Manager) getGatewayCpu() ([]float64, error) {
	percents, err := cpu.Percent(time.Second, true)
	if err != nil {
		klog.V(2).InfoS("Failed to get cpu usage", "err", err)
		return nil, err
	}
	return percents, nil
}

func (m *Manager) getGatewayMem() (*MemUsageInfo, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		klog.V(2).InfoS("Failed to get memory usage", "err", err)
		return nil, err
	}
	return &MemUsageInfo{
		Total:       humanByteSize(vm.Total),
		Used:        humanByteSize(vm.Used),
		UsedPercent: fmt.Sprintf("%.1f%%", vm.UsedPercent),
	}, nil
}

func (m *Manager) getGatewayDisk() ([]*DiskUsageInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		klog.V(2).InfoS("Failed to get disk partitions", "err", err)
		return nil, err
	}
	infos := make([]*DiskUsageInfo, 0, len(partitions))
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			continue
		}
		infos = append(infos, &DiskUsageInfo{
			Total:       humanByteSize(usage.Total),
			Used:        humanByteSize(usage.Used),
			UsedPercent: fmt.Sprintf("%.1f%%", usage.UsedPercent),
		})
	}
	return infos, nil
}

func humanByteSize(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(b)/float64(div), "KMGTPE"[exp])
}
