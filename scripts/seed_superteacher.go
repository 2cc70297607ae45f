// 创建或提升超级教师账号
//
// 首次部署时没有任何账号可以审核教师注册，需要先用此脚本生成一个超级教师。
// 已存在的账号会被提升为超级教师并标记为已审核，密码只在提供时重置。
//
// 用法: go run scripts/seed_superteacher.go -email admin@school.edu -name Admin -password secret

package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/pkg/database"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// seedConfig 只读取数据库部分
type seedConfig struct {
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		Charset  string `yaml:"charset"`
		Path     string `yaml:"path"`
	} `yaml:"database"`
}

func (c *seedConfig) databaseConfig() *config.DatabaseConfig {
	d := c.Database
	charset := d.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return &config.DatabaseConfig{
		Driver:    d.Driver,
		Host:      d.Host,
		Port:      d.Port,
		User:      d.User,
		Password:  d.Password,
		DBName:    d.DBName,
		Charset:   charset,
		ParseTime: true,
		Path:      d.Path,
	}
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	email := flag.String("email", "", "超级教师邮箱")
	name := flag.String("name", "Super Teacher", "显示名称")
	password := flag.String("password", "", "登录密码（新建账号时必填）")
	flag.Parse()

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" {
		log.Fatal("必须指定 -email")
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	var cfg seedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	db, err := database.InitDB(cfg.databaseConfig(), false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	repo := repository.NewUserRepository(db)
	user, err := repo.FindByEmail(addr)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if *password == "" {
			log.Fatal("新建账号必须指定 -password")
		}
		user = &model.User{Name: *name, Email: addr}
	case err != nil:
		log.Fatalf("查询用户失败: %v", err)
	}

	if *password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("密码加密失败: %v", err)
		}
		user.Password = string(hashed)
	}
	user.Role = model.SuperTeacher
	user.Approved = true

	if user.ID == 0 {
		err = repo.Create(user)
	} else {
		err = repo.Update(user)
	}
	if err != nil {
		log.Fatalf("保存用户失败: %v", err)
	}
	log.Printf("超级教师已就绪: %s (id=%d)", user.Email, user.ID)
}
