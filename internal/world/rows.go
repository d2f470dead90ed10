package world

// Room geometry and reach constants. Rooms are fixed-size axis-aligned
// boxes; entities are clamped to one tile of inset.
const (
	Tile  = 36.0
	RoomW = 540.0
	RoomH = 720.0

	SpawnX = 270.0
	SpawnY = 360.0

	AttackRange      = 100.0
	EnemyAttackRange = 40.0
	LootPickupRange  = 50.0
	DashDistance     = 150.0

	EnemyMoveSpeed = 2.0
	BaseXPPerLevel = 100

	GridW = 10
	GridH = 10
)

// Identity is the stable player id minted by the account layer. Zero means
// "no player" everywhere it appears as a reference.
type Identity uint64

type Class string

const (
	ClassTank   Class = "tank"
	ClassHealer Class = "healer"
	ClassDPS    Class = "dps"
)

func ValidClass(c Class) bool {
	return c == ClassTank || c == ClassHealer || c == ClassDPS
}

type Mode string

const (
	ModeHub       Mode = "hub"
	ModeOpenWorld Mode = "open_world"
	ModeDungeon   Mode = "dungeon"
	ModeRaid      Mode = "raid"
)

func ValidMode(m Mode) bool {
	return m == ModeHub || m == ModeOpenWorld || m == ModeDungeon || m == ModeRaid
}

// Player is the persistent account-level character row.
type Player struct {
	Identity        Identity `json:"identity"`
	Name            string   `json:"name"`
	Class           Class    `json:"class"`
	Level           uint32   `json:"level"`
	XP              uint64   `json:"xp"`
	HP              int32    `json:"hp"`
	MaxHP           int32    `json:"max_hp"`
	Atk             int32    `json:"atk"`
	Def             int32    `json:"def"`
	Speed           int32    `json:"speed"`
	Gold            uint64   `json:"gold"`
	DungeonsCleared uint32   `json:"dungeons_cleared"`

	Dirty   bool    `json:"-"` // pending durable save
	HealAcc float64 `json:"-"` // fractional healing carried between ticks
}

// Dungeon is one dungeon instance. StatMult is the enemy stat multiplier
// fixed at creation (depth scale for ad-hoc runs, difficulty × party scale
// for matchmade ones) so later rooms spawn with the same scaling.
type Dungeon struct {
	ID          uint64   `json:"id"`
	Owner       Identity `json:"owner_identity"`
	Depth       uint32   `json:"depth"`
	CurrentRoom uint32   `json:"current_room"`
	TotalRooms  uint32   `json:"total_rooms"`
	Seed        uint64   `json:"seed"`
	IsRaid      bool     `json:"is_raid"`
	StatMult    float64  `json:"stat_mult"`
}

// ParticipantKey keys dungeon membership by the real composite.
type ParticipantKey struct {
	Dungeon uint64   `json:"dungeon_id"`
	Player  Identity `json:"player_identity"`
}

type Participant struct {
	DungeonID uint64   `json:"dungeon_id"`
	Player    Identity `json:"player_identity"`
}

// EnemyCore is the simulation state shared by dungeon and open-world
// enemies; the AI machines operate on this alone. TargetX/TargetY and
// StateTimer are per-archetype scratch: the charger locks its charge vector
// in them, the wolf repurposes TargetX as an attack cooldown and StateTimer
// as an orbit phase accumulator, the archer records its last shot origin,
// the necromancer its teleport destination. The shield knight tracks its
// plain-attack cooldown in negative StateTimer values.
type EnemyCore struct {
	Type        string  `json:"enemy_type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	FacingAngle float64 `json:"facing_angle"`
	HP          int32   `json:"hp"`
	MaxHP       int32   `json:"max_hp"`
	Atk         int32   `json:"atk"`
	AIState     string  `json:"ai_state"`
	StateTimer  float64 `json:"state_timer"`
	TargetX     float64 `json:"target_x"`
	TargetY     float64 `json:"target_y"`
	PackID      uint64  `json:"pack_id"`
	IsAlive     bool    `json:"is_alive"`

	CurrentTarget Identity `json:"current_target"`
	IsTaunted     bool     `json:"is_taunted"`
	TauntedBy     Identity `json:"taunted_by"`
	TauntTimer    float64  `json:"taunt_timer"`

	IsBoss    bool  `json:"is_boss"`
	BossPhase uint8 `json:"boss_phase"`
}

// Enemy is a dungeon-instanced enemy.
type Enemy struct {
	ID        uint64 `json:"id"`
	DungeonID uint64 `json:"dungeon_id"`
	RoomIndex uint32 `json:"room_index"`
	EnemyCore
}

// Position is a player's real-time dungeon position with the visual fields
// clients render from. Name and level are cached on first insert.
type Position struct {
	Identity      Identity `json:"identity"`
	DungeonID     uint64   `json:"dungeon_id"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	FacingX       float64  `json:"facing_x"`
	FacingY       float64  `json:"facing_y"`
	Name          string   `json:"name"`
	Level         uint32   `json:"level"`
	Class         Class    `json:"class"`
	WeaponIcon    string   `json:"weapon_icon"`
	ArmorIcon     string   `json:"armor_icon"`
	AccessoryIcon string   `json:"accessory_icon"`
}

// LootDrop stays in the table after pickup; PickedUp is the idempotence
// marker. Rows are removed with their dungeon.
type LootDrop struct {
	ID        uint64  `json:"id"`
	DungeonID uint64  `json:"dungeon_id"`
	RoomIndex uint32  `json:"room_index"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ItemJSON  string  `json:"item_data_json"`
	Rarity    string  `json:"rarity"`
	PickedUp  bool    `json:"picked_up"`
}

type Item struct {
	ID           uint64   `json:"id"`
	Owner        Identity `json:"owner_identity"`
	ItemJSON     string   `json:"item_data_json"`
	EquippedSlot string   `json:"equipped_slot"` // empty = not equipped
	CardJSON     string   `json:"card_data_json"`

	Dirty bool `json:"-"`
}

// ThreatKey keys threat by the logical composite directly.
type ThreatKey struct {
	Dungeon uint64   `json:"dungeon_id"`
	Enemy   uint64   `json:"enemy_id"`
	Player  Identity `json:"player_identity"`
}

type ThreatEntry struct {
	DungeonID uint64   `json:"dungeon_id"`
	EnemyID   uint64   `json:"enemy_id"`
	Player    Identity `json:"player_identity"`
	Amount    int64    `json:"amount"`
}

// AbilityState carries per-player cooldown clocks, decremented each AI tick
// and clamped at zero. DashCD is decremented but never consulted.
type AbilityState struct {
	Identity      Identity `json:"identity"`
	TauntCD       float64  `json:"taunt_cd"`
	KnockbackCD   float64  `json:"knockback_cd"`
	HealingZoneCD float64  `json:"healing_zone_cd"`
	DashCD        float64  `json:"dash_cd"`
	PostDashBonus float64  `json:"post_dash_bonus_timer"`
}

type HealingZone struct {
	ID         uint64   `json:"id"`
	DungeonID  uint64   `json:"dungeon_id"`
	Owner      Identity `json:"owner"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Radius     float64  `json:"radius"`
	HealPerSec float64  `json:"heal_per_sec"`
	Duration   float64  `json:"duration_remaining"`
}

type GameMode struct {
	Identity   Identity `json:"identity"`
	Mode       Mode     `json:"mode"`
	InstanceID uint64   `json:"instance_id"` // shard / dungeon / raid id, 0 in hub
}

// Shard is one open-world instance.
type Shard struct {
	ID          uint64 `json:"id"`
	PlayerCount uint32 `json:"player_count"`
	CreatedAt   int64  `json:"created_at"`
}

// WorldEnemy is an open-world enemy. RespawnAt is unix micros, zero while
// alive; BaseHP/BaseAtk are the spawn stats restored on respawn.
type WorldEnemy struct {
	ID         uint64 `json:"id"`
	InstanceID uint64 `json:"instance_id"`
	RoomX      uint32 `json:"room_x"`
	RoomY      uint32 `json:"room_y"`
	Level      uint32 `json:"level"`
	RespawnAt  int64  `json:"respawn_at"`
	BaseHP     int32  `json:"-"`
	BaseAtk    int32  `json:"-"`
	EnemyCore
}

type WorldPlayer struct {
	Identity      Identity `json:"identity"`
	InstanceID    uint64   `json:"instance_id"`
	RoomX         uint32   `json:"room_x"`
	RoomY         uint32   `json:"room_y"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	FacingX       float64  `json:"facing_x"`
	FacingY       float64  `json:"facing_y"`
	Name          string   `json:"name"`
	Level         uint32   `json:"level"`
	Class         Class    `json:"class"`
	WeaponIcon    string   `json:"weapon_icon"`
	ArmorIcon     string   `json:"armor_icon"`
	AccessoryIcon string   `json:"accessory_icon"`
}

type QueueEntry struct {
	Player     Identity `json:"player_identity"`
	Tier       uint8    `json:"tier"`
	Difficulty uint8    `json:"difficulty"`
	QueuedAt   int64    `json:"queued_at"` // unix micros
}

type RaidQueueEntry struct {
	Player   Identity `json:"player_identity"`
	Class    Class    `json:"class"`
	QueuedAt int64    `json:"queued_at"`
}

// Raid links the raid bookkeeping row to the backing dungeon holding the
// boss enemy.
type Raid struct {
	ID        uint64 `json:"id"`
	DungeonID uint64 `json:"dungeon_id"`
	BossID    uint64 `json:"boss_enemy_id"`
	CreatedAt int64  `json:"created_at"`
}

type RaidParticipantKey struct {
	Raid   uint64   `json:"raid_id"`
	Player Identity `json:"player_identity"`
}

type RaidParticipant struct {
	RaidID uint64   `json:"raid_id"`
	Player Identity `json:"player_identity"`
	Role   Class    `json:"role"`
}

type RaidCooldown struct {
	Player Identity `json:"player_identity"`
	Until  int64    `json:"cooldown_until"` // unix micros

	Dirty bool `json:"-"`
}

// DailyClearKey is (identity, UTC date), one clear recorded per day.
type DailyClearKey struct {
	Player Identity `json:"player_identity"`
	Date   string   `json:"date"` // 2006-01-02
}

type DailyRaidClear struct {
	Player    Identity `json:"player_identity"`
	Date      string   `json:"date"`
	ClearedAt int64    `json:"cleared_at"`

	Dirty bool `json:"-"`
}

type Message struct {
	ID         uint64   `json:"id"`
	DungeonID  uint64   `json:"dungeon_id"`
	Sender     Identity `json:"sender"`
	SenderName string   `json:"sender_name"`
	Kind       string   `json:"kind"` // chat | emote
	Content    string   `json:"content"`
	SentAt     int64    `json:"sent_at"`
}

// Schedule marks a tick handler as armed; rows survive restarts and re-arm
// their handlers on boot.
type Schedule struct {
	Name    string `json:"name"`
	EveryMS int64  `json:"every_ms"`
}
