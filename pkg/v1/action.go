package v1

type CoverAction struct {
	Action   string `json:"action" binding:"required,oneof=open close stop setPosition reset delete"`
	Position *int   `json:"position,omitempty" binding:"omitempty,gte=0,lte=100"`
}

type AddressAssignment struct {
	DeviceIdLow  *uint8 `json:"deviceIdLow" binding:"required,gte=1,lte=254"`
	DeviceIdHigh *uint8 `json:"deviceIdHigh" binding:"required,gte=1,lte=254"`
}
