package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericLight struct {
	Device     Device
	Id         string
	Name       string
	UniqueId   string
	Brightness bool
	ColorTemp  bool
	MinMireds  int
	MaxMireds  int
}

type GenericFan struct {
	Device      Device
	Id          string
	Name        string
	UniqueId    string
	SpeedCount  int
	PresetModes []string
	Direction   bool
}

type GenericSwitch struct {
	Device      Device
	Id          string
	Name        string
	UniqueId    string
	DeviceClass string // switch, outlet
	Icon        string
}
