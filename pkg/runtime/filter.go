package runtime

import (
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"k8s.io/klog/v2"
)

type DeviceFilter struct {
	Name          string `json:"name,omitempty" mapstructure:"name"`
	DeviceType    string `json:"deviceType,omitempty" mapstructure:"deviceType"`
	DeviceModel   string `json:"deviceModel,omitempty" mapstructure:"deviceModel"`
	CollectStatus string `json:"collectStatus,omitempty" mapstructure:"collectStatus"`
}

type Predicate func(Device) bool

// ParseTypeFilter turns the filter object into per-field match predicates.
// Name matches as a case-insensitive substring, the rest match exactly.
func ParseTypeFilter(filter *DeviceFilter) []Predicate {
	fields := map[string]interface{}{}
	if err := mapstructure.Decode(filter, &fields); err != nil {
		klog.V(2).InfoS("Failed to decode device filter", "err", err)
		return nil
	}

	predicates := make([]Predicate, 0, len(fields))
	for field, value := range fields {
		v, ok := value.(string)
		if !ok || len(v) == 0 {
			continue
		}
		switch field {
		case "name":
			predicates = append(predicates, func(d Device) bool {
				return strings.Contains(strings.ToLower(d.GetName()), strings.ToLower(v))
			})
		case "deviceType":
			predicates = append(predicates, func(d Device) bool { return d.GetDeviceType() == v })
		case "deviceModel":
			predicates = append(predicates, func(d Device) bool { return d.GetDeviceModel() == v })
		case "collectStatus":
			predicates = append(predicates, func(d Device) bool { return d.GetCollectStatus() == v })
		}
	}
	return predicates
}

type lessTypeFunc func(d1, d2 Device) bool

type typeSorter struct {
	ds        []Device
	lessFuncs []lessTypeFunc
}

func ByDevice(less ...lessTypeFunc) *typeSorter {
	return &typeSorter{
		lessFuncs: less,
	}
}

func (ms *typeSorter) Sort(ds []Device) {
	ms.ds = ds
	sort.Sort(ms)
}

func (ms *typeSorter) Len() int {
	return len(ms.ds)
}

func (ms *typeSorter) Swap(i, j int) {
	ms.ds[i], ms.ds[j] = ms.ds[j], ms.ds[i]
}

func (ms *typeSorter) Less(i, j int) bool {
	return ms.less(ms.ds[i], ms.ds[j])
}

func (ms *typeSorter) less(p, q Device) bool {
	var k int
	for k = 0; k < len(ms.lessFuncs)-1; k++ {
		less := ms.lessFuncs[k]
		switch {
		case less(p, q):
			return true
		case less(q, p):
			return false
		}
	}
	return ms.lessFuncs[k](p, q)
}

func (ms *typeSorter) Insert(ds []Device, d Device) []Device {
	i := sort.Search(len(ds), func(i int) bool { return ms.less(ds[i], d) })
	ds = append(ds, d)
	copy(ds[i+1:], ds[i:])
	ds[i] = d
	return ds
}
