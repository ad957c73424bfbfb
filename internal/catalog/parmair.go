// internal/catalog/parmair.go
package catalog

import "github.com/tamzrod/parmair-bridge/internal/device"

// Register keys of the Parmair MAC table.
const (
	KeySoftwareVersion = "software_version"
	KeyHeaterType      = "heater_type"
	KeyPower           = "power"

	KeyFreshAirTemp   = "fresh_air_temp"
	KeySupplyAirTemp  = "supply_air_temp"
	KeyExhaustAirTemp = "exhaust_air_temp"
	KeyWasteAirTemp   = "waste_air_temp"
	KeyExhaustHumid   = "exhaust_humidity"
	KeyExhaustCO2     = "exhaust_co2"
	KeySupplyFanSpeed = "supply_fan_speed"
	KeyExhaustFanSpd  = "exhaust_fan_speed"
	KeyControlState   = "control_state"
	KeyFilterState    = "filter_state"
	KeyAlarmCount     = "alarm_count"
	KeyOperatingHours = "operating_hours"

	KeyExhaustTempSetpoint = "exhaust_temp_setpoint"
	KeySupplyTempSetpoint  = "supply_temp_setpoint"
	KeySummerModeTempLimit = "summer_mode_temp_limit"
	KeyBoostTimer          = "boost_timer"
	KeyOverpressureTimer   = "overpressure_timer"

	KeyFilterInterval          = "filter_interval"
	KeySpeedControl            = "speed_control"
	KeyHomeSpeed               = "home_speed"
	KeyAwaySpeed               = "away_speed"
	KeyBoostSetting            = "boost_setting"
	KeyBoostTimeSetting        = "boost_time_setting"
	KeyOverpressureTimeSetting = "overpressure_time_setting"
	KeySummerMode              = "summer_mode"
)

func bounded(min, max float64) (bool, Range) {
	return true, Range{Min: min, Max: max}
}

func temp(key string, addr uint16, kind Kind, min, max float64) Definition {
	b, r := bounded(min, max)
	return Definition{Key: key, Address: addr, Type: S16, Scale: 0.1, Kind: kind, Families: AllFamilies, Bounded: b, ValueRange: r}
}

func enum(key string, addr uint16, kind Kind, families FamilySet, min, max float64) Definition {
	b, r := bounded(min, max)
	return Definition{Key: key, Address: addr, Type: U16, Scale: 1, Kind: kind, Families: families, Enum: true, Bounded: b, ValueRange: r}
}

func plain(key string, addr uint16, t DataType, min, max float64) Definition {
	b, r := bounded(min, max)
	return Definition{Key: key, Address: addr, Type: t, Scale: 1, Kind: KindReadOnly, Families: AllFamilies, Bounded: b, ValueRange: r}
}

// parmairMAC is the holding register map of the Parmair MAC controller.
// Addresses are 0-based protocol offsets.
var parmairMAC = []Definition{
	// identification
	{Key: KeySoftwareVersion, Address: 1018, Type: U16, Scale: 0.1, Kind: KindReadOnly, Families: AllFamilies},
	enum(KeyHeaterType, 1240, KindReadOnly, AllFamilies, 0, 2),
	enum(KeyPower, 1208, KindReadWrite, AllFamilies, 0, 1),

	// measurements
	temp(KeyFreshAirTemp, 1020, KindReadOnly, -50, 100),
	temp(KeySupplyAirTemp, 1023, KindReadOnly, -50, 100),
	temp(KeyExhaustAirTemp, 1024, KindReadOnly, -50, 100),
	temp(KeyWasteAirTemp, 1025, KindReadOnly, -50, 100),
	plain(KeyExhaustHumid, 1036, U16, 0, 100),
	plain(KeySupplyFanSpeed, 1040, U16, 0, 100),
	plain(KeyExhaustFanSpd, 1041, U16, 0, 100),
	plain(KeyExhaustCO2, 1042, U16, 0, 10000),
	plain(KeyOperatingHours, 1100, U32, 0, 4294967295),
	enum(KeyControlState, 1185, KindReadOnly, AllFamilies, 0, 9),
	enum(KeyFilterState, 1204, KindReadOnly, AllFamilies, 0, 2),
	plain(KeyAlarmCount, 1205, U16, 0, 65535),

	// setpoints
	temp(KeyExhaustTempSetpoint, 1060, KindReadWrite, 18, 26),
	temp(KeySupplyTempSetpoint, 1065, KindReadWrite, 15, 25),
	temp(KeySummerModeTempLimit, 1077, KindReadWrite, 15, 30),
	{Key: KeyBoostTimer, Address: 1238, Type: S16, Scale: 1, Kind: KindReadWrite, Families: AllFamilies, Bounded: true, ValueRange: Range{Min: -1, Max: 300}},
	{Key: KeyOverpressureTimer, Address: 1239, Type: S16, Scale: 1, Kind: KindReadWrite, Families: AllFamilies, Bounded: true, ValueRange: Range{Min: -1, Max: 300}},

	// multi-choice controls
	enum(KeySummerMode, 1079, KindReadWrite, Families(device.FamilyV2), 0, 2),
	enum(KeyFilterInterval, 1085, KindReadWrite, AllFamilies, 0, 2),
	enum(KeyHomeSpeed, 1104, KindReadWrite, AllFamilies, 0, 4),
	enum(KeyAwaySpeed, 1105, KindReadWrite, AllFamilies, 0, 4),
	enum(KeyBoostSetting, 1106, KindReadWrite, AllFamilies, 2, 4),
	enum(KeyBoostTimeSetting, 1107, KindReadWrite, AllFamilies, 0, 4),
	enum(KeyOverpressureTimeSetting, 1108, KindReadWrite, AllFamilies, 0, 4),
	enum(KeySpeedControl, 1187, KindReadWrite, AllFamilies, 0, 6),
}

var defaultCatalog = MustNew(parmairMAC)

// Default is the built-in Parmair MAC catalog.
func Default() *Catalog {
	return defaultCatalog
}
