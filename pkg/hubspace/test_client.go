package hubspace

import (
	"errors"
)

// TestService is a canned in-memory vendor service for tests and dry
// runs: a fixed four-device fleet, push calls recorded and echoed back.
type TestService struct {
	FailAuthenticate bool
	FailFetch        bool
	FailPush         bool
	Pushed           []PushRecord
}

type PushRecord struct {
	MetadeviceID string
	Values       []StateUpdate
}

func NewTestService() *TestService {
	return &TestService{}
}

func (s *TestService) Authenticate() error {
	if s.FailAuthenticate {
		return errors.New("test authenticate error")
	}
	return nil
}

func (s *TestService) FetchDevices() (Snapshot, error) {
	if s.FailFetch {
		return nil, errors.New("test fetch error")
	}
	return ParseSnapshot([]byte(testListingJSON))
}

func (s *TestService) SetState(metadeviceID string, values []StateUpdate) (*StateDoc, error) {
	if s.FailPush {
		return nil, errors.New("test push error")
	}
	s.Pushed = append(s.Pushed, PushRecord{MetadeviceID: metadeviceID, Values: values})
	doc := &StateDoc{MetadeviceID: metadeviceID}
	for _, v := range values {
		doc.Values = append(doc.Values, &StateValue{
			Key:            FunctionKey{Class: v.FunctionClass, Instance: v.FunctionInstance},
			Value:          v.Value,
			LastUpdateTime: v.LastUpdateTime,
		})
	}
	return doc, nil
}

// Fixture listing: a dimmable tunable light, a ceiling fan with a comfort
// breeze preset, a three-socket outlet strip and a plain wall switch.
const testListingJSON = `[
  {
    "typeId": "metadevice.device",
    "id": "lght-0000-0000-0000-000000000001",
    "deviceId": "phys-0001",
    "friendlyName": "Office Lamp",
    "description": {
      "device": {
        "deviceClass": "light",
        "model": "38566007",
        "manufacturerName": "CommercialElectric"
      },
      "functions": [
        {"functionClass": "power", "functionInstance": "light-power", "values": [{"name": "on"}, {"name": "off"}]},
        {"functionClass": "brightness", "values": [{"name": "100"}, {"name": "1"}]},
        {"functionClass": "color-temperature", "values": [{"name": "5000K"}, {"name": "2700K"}, {"name": "3500K"}]},
        {"functionClass": "available", "values": []}
      ]
    },
    "state": {
      "values": [
        {"functionClass": "power", "functionInstance": "light-power", "value": "on", "lastUpdateTime": 1700000000000},
        {"functionClass": "brightness", "value": "50", "lastUpdateTime": 1700000000000},
        {"functionClass": "color-temperature", "value": "2700K", "lastUpdateTime": 1700000000000},
        {"functionClass": "available", "value": true, "lastUpdateTime": 1700000000000}
      ]
    }
  },
  {
    "typeId": "metadevice.device",
    "id": "fan0-0000-0000-0000-000000000002",
    "deviceId": "phys-0002",
    "friendlyName": "Bedroom Fan",
    "description": {
      "device": {
        "deviceClass": "ceiling-fan",
        "model": "DDC52",
        "manufacturerName": "HamptonBay"
      },
      "functions": [
        {"functionClass": "power", "functionInstance": "fan-power", "values": [{"name": "on"}, {"name": "off"}]},
        {"functionClass": "fan-speed", "functionInstance": "fan-speed", "values": [
          {"name": "fan-speed-050"}, {"name": "fan-speed-000"}, {"name": "fan-speed-100"},
          {"name": "fan-speed-025"}, {"name": "fan-speed-075"}
        ]},
        {"functionClass": "fan-reverse", "functionInstance": "fan-reverse", "values": [{"name": "forward"}, {"name": "reverse"}]},
        {"functionClass": "toggle", "functionInstance": "comfort-breeze", "values": [{"name": "enabled"}, {"name": "disabled"}]},
        {"functionClass": "available", "values": []}
      ]
    },
    "state": {
      "values": [
        {"functionClass": "power", "functionInstance": "fan-power", "value": "on", "lastUpdateTime": 1700000000000},
        {"functionClass": "fan-speed", "functionInstance": "fan-speed", "value": "fan-speed-050", "lastUpdateTime": 1700000000000},
        {"functionClass": "fan-reverse", "functionInstance": "fan-reverse", "value": "forward", "lastUpdateTime": 1700000000000},
        {"functionClass": "toggle", "functionInstance": "comfort-breeze", "value": "disabled", "lastUpdateTime": 1700000000000},
        {"functionClass": "available", "value": true, "lastUpdateTime": 1700000000000}
      ]
    }
  },
  {
    "typeId": "metadevice.device",
    "id": "strp-0000-0000-0000-000000000003",
    "deviceId": "phys-0003",
    "friendlyName": "Patio Strip",
    "description": {
      "device": {
        "deviceClass": "power-outlet",
        "model": "HPKA315CWB",
        "manufacturerName": "Defiant"
      },
      "functions": [
        {"functionClass": "toggle", "functionInstance": "outlet-1", "values": [{"name": "on"}, {"name": "off"}]},
        {"functionClass": "toggle", "functionInstance": "outlet-2", "values": [{"name": "on"}, {"name": "off"}]},
        {"functionClass": "toggle", "functionInstance": "outlet-3", "values": [{"name": "on"}, {"name": "off"}]},
        {"functionClass": "available", "values": []}
      ]
    },
    "state": {
      "values": [
        {"functionClass": "toggle", "functionInstance": "outlet-1", "value": "on", "lastUpdateTime": 1700000000000},
        {"functionClass": "toggle", "functionInstance": "outlet-2", "value": "off", "lastUpdateTime": 1700000000000},
        {"functionClass": "toggle", "functionInstance": "outlet-3", "value": "off", "lastUpdateTime": 1700000000000},
        {"functionClass": "available", "value": 1, "lastUpdateTime": 1700000000000}
      ]
    }
  },
  {
    "typeId": "metadevice.device",
    "id": "swch-0000-0000-0000-000000000004",
    "deviceId": "phys-0004",
    "friendlyName": "Porch Switch",
    "description": {
      "device": {
        "deviceClass": "switch",
        "model": "HPSA11CWB",
        "manufacturerName": "Defiant"
      },
      "functions": [
        {"functionClass": "toggle", "values": [{"name": "on"}, {"name": "off"}]},
        {"functionClass": "wifi-ssid", "values": []},
        {"functionClass": "available", "values": []}
      ]
    },
    "state": {
      "values": [
        {"functionClass": "toggle", "value": "off", "lastUpdateTime": 1700000000000},
        {"functionClass": "wifi-ssid", "value": "home-net", "lastUpdateTime": 1700000000000},
        {"functionClass": "available", "value": true, "lastUpdateTime": 1700000000000}
      ]
    }
  },
  {
    "typeId": "metadevice.home",
    "id": "home-0000-0000-0000-000000000005",
    "friendlyName": "Home"
  }
]`
