/*
 * @module service/meta/constants
 * @description 门架交易业务常量定义，包含轴数限重标准、云南省收费标准、时段划分、车型分类边界等
 * @architecture 元数据层 - 静态业务常量
 * @documentReference ai_docs/dgm_generator_impl.md
 * @stateFlow 无状态常量定义
 * @rules 业务常量一经定义不可在运行时修改，消除散落在各处的魔法数字
 * @dependencies 无
 * @refs service/dgm, service/models
 */

package meta

// 车辆类别
const (
	VehicleCategoryPassenger = "passenger" // 客车（车型代码1-4）
	VehicleCategoryTruck     = "truck"     // 货车（车型代码11-16）
	VehicleCategorySpecial   = "special"   // 专项车（车型代码21-26）
)

// 车型代码范围（交通运输部收费公路车型分类标准）
const (
	PassengerTypeMin = 1
	PassengerTypeMax = 4
	TruckTypeMin     = 11
	TruckTypeMax     = 16
	SpecialTypeMin   = 21
	SpecialTypeMax   = 26
)

// 时段
const (
	TimePeriodMorningRush = "morning_rush" // 早高峰 07:00-09:00
	TimePeriodEveningRush = "evening_rush" // 晚高峰 17:00-19:00
	TimePeriodNight       = "night"        // 深夜 23:00-05:00
	TimePeriodOffPeak     = "off_peak"     // 平峰
)

// 时段边界（小时）
const (
	MorningRushStart = 7
	MorningRushEnd   = 9
	EveningRushStart = 17
	EveningRushEnd   = 19
	NightStart       = 23
	NightEnd         = 5
)

// 场景
const (
	ScenarioNormal     = "normal"     // 正常通行
	ScenarioOverloaded = "overloaded" // 超载
	ScenarioAnomalous  = "anomalous"  // 异常（无入口信息等）
)

// VehicleCategories 车辆类别的固定顺序（调度器差距并列时的决胜顺序）
var VehicleCategories = []string{VehicleCategoryTruck, VehicleCategoryPassenger, VehicleCategorySpecial}

// TimePeriods 时段的固定顺序
var TimePeriods = []string{TimePeriodMorningRush, TimePeriodEveningRush, TimePeriodOffPeak, TimePeriodNight}

// Scenarios 场景的固定顺序
var Scenarios = []string{ScenarioNormal, ScenarioOverloaded, ScenarioAnomalous}

// AxleWeightLimits 轴数限重标准（国家标准GB1589-2016），单位kg
var AxleWeightLimits = map[string]int{
	"2": 18000,
	"3": 25000,
	"4": 31000,
	"5": 43000,
	"6": 49000,
}

// AxleWeightLimit 获取指定轴数的限重，未知轴数按6轴上限处理
func AxleWeightLimit(axleCount string) int {
	if limit, ok := AxleWeightLimits[axleCount]; ok {
		return limit
	}
	return AxleWeightLimits["6"]
}

// PassengerTollRates 客车收费费率（云南省标准，元/公里），按车型代码
var PassengerTollRates = map[string]float64{
	"1": 0.45,
	"2": 0.75,
	"3": 1.05,
	"4": 1.25,
}

// 货车费率（元/公里）：普通路段与桥隧路段按80%/20%加权
const (
	TruckRateNormal     = 0.45
	TruckRateBridge     = 1.15
	TruckBridgeFraction = 0.2
)

// TruckBlendedRate 货车加权平均费率
func TruckBlendedRate() float64 {
	return TruckRateNormal*(1-TruckBridgeFraction) + TruckRateBridge*TruckBridgeFraction
}

// ExpectedFee 根据里程和车型计算期望费用（分）
func ExpectedFee(mileageMeters int, vehicleType string) int {
	rate, ok := PassengerTollRates[vehicleType]
	if !ok {
		rate = TruckBlendedRate()
	}
	return int(float64(mileageMeters) / 1000 * rate * 100)
}

// 客车重量范围（kg）
const (
	PassengerWeightMin = 2000
	PassengerWeightMax = 5000
)

// 行程时间约束（入口时间与交易时间之差）
const (
	MinTravelHours = 0.5
	MaxTravelHours = 6.0
)

// ETC优惠比例：media_type=1（OBU）时 discount_fee = pay_fee × 5%
const ETCDiscountRate = 0.05

// 质量权重分层阈值
const (
	TierHighThreshold = 1.2 // 权重 > 1.2 为高质量
	TierLowThreshold  = 0.8 // 权重 < 0.8 为低质量
)

// DefaultAcceptThreshold 样本过滤默认通过阈值
const DefaultAcceptThreshold = 0.8

// ExpectedAxles 车型代码对应的期望轴数
var ExpectedAxles = map[string]string{
	"1": "2", "2": "2", "3": "2", "4": "2",
	"11": "2", "12": "2", "13": "3", "14": "4", "15": "5", "16": "6",
	"21": "2", "22": "2", "23": "3", "24": "4", "25": "5", "26": "6",
}

// GantryToSection 门架到路段的真实映射关系（生成数据必须保持该拓扑一致性）
var GantryToSection = map[string]string{
	"G561553012000210010": "G5615530120",
	"G561553012000220010": "G5615530120",
	"G761153001000110010": "G7611530010",
	"G761153001000120010": "G7611530010",
	"S001053001000210010": "S0010530010",
	"S001053001000220010": "S0010530010",
	"S001053002000110010": "S0010530020",
	"S001453001000210010": "S0014530010",
	"S001453002000110010": "S0014530020",
	"S001453003000210010": "S0014530030",
	"S007153002000110010": "S0071530020",
}

// SectionNameByID 路段ID到路段名称的映射
var SectionNameByID = map[string]string{
	"G5615530120": "麻文高速",
	"G7611530010": "都香高速",
	"S0010530010": "彝良至昭通高速",
	"S0010530020": "彝良至镇雄高速公路",
	"S0014530010": "宜宾至毕节高速威信至镇雄段",
	"S0014530020": "青龙咎至水田新区高速",
	"S0014530030": "大关至永善高速",
	"S0071530020": "昭阳西环高速公路",
}

// SectionSampleDates 预配置的路段采样日期（根据真实采样情况配置，格式YYYY-MM-DD）
var SectionSampleDates = map[string][]string{
	"G5615530120": {"2023-01-03"},
	"G7611530010": {"2023-02-01"},
	"S0010530010": {"2023-02-20", "2023-02-21"},
	"S0010530020": {"2023-03-08", "2023-03-09"},
	"S0014530010": {"2023-03-15", "2023-03-16"},
	"S0014530020": {"2023-03-22", "2023-03-23"},
	"S0014530030": {"2023-12-22", "2023-12-23"},
	"S0071530020": {"2023-02-08", "2023-02-09"},
}
