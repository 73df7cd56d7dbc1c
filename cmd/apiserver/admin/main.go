package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"

	"go.uber.org/zap"

	"neosocial/internal/auth"
	"neosocial/internal/config"
	"neosocial/internal/logging"
	"neosocial/internal/models"
	"neosocial/internal/services"
	"neosocial/internal/storage"
)

func usage() {
	fmt.Println("使用方法:")
	fmt.Println("  ./admin reconcile [--repair]          - 检查 (并修复) 群组 member_count")
	fmt.Println("  ./admin check-symmetry                - 列出缺少反向边的 FRIENDS_WITH")
	fmt.Println("  ./admin show-group <groupID>          - 显示群组信息与成员")
	fmt.Println("  ./admin upsert-user <userID> <name>   - 创建或更新用户节点")
	fmt.Println("  ./admin issue-token <userID>          - 为用户签发测试用 JWT")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(os.Getenv("NEOSOCIAL_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 签发令牌不需要图存储
	if os.Args[1] == "issue-token" {
		if len(os.Args) < 3 {
			log.Fatalf("需要指定用户ID")
		}
		token, err := auth.GenerateToken(os.Args[2], "", cfg.Auth)
		if err != nil {
			log.Fatalf("签发令牌失败: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()
	graph, err := storage.InitGraphStore(ctx, cfg.Graph, logger)
	if err != nil {
		log.Fatalf("无法连接图存储: %v", err)
	}
	defer graph.Close(ctx)

	groupService := services.NewGroupMembershipService(graph, services.NewAuthorizationGuard(graph), nil, nil, nil, logger)
	friendService := services.NewFriendshipService(graph, nil, nil, logger)

	switch os.Args[1] {
	case "reconcile":
		repair := slices.Contains(os.Args[2:], "--repair")
		reconcile(ctx, groupService, repair)

	case "check-symmetry":
		checkSymmetry(ctx, friendService)

	case "show-group":
		if len(os.Args) < 3 {
			log.Fatalf("需要指定群组ID")
		}
		showGroup(ctx, groupService, os.Args[2])

	case "upsert-user":
		if len(os.Args) < 4 {
			log.Fatalf("需要指定用户ID和名称")
		}
		user := models.User{ID: os.Args[2], Name: os.Args[3]}
		err := graph.Write(ctx, func(tx storage.GraphTx) error {
			return tx.UpsertUser(ctx, user)
		})
		if err != nil {
			log.Fatalf("写入用户失败: %v", err)
		}
		logger.Info("user upserted", zap.String("user", user.ID))

	default:
		usage()
		log.Fatalf("未知命令: %s", os.Args[1])
	}
}

func reconcile(ctx context.Context, groups services.GroupMembershipService, repair bool) {
	drifts, err := groups.ReconcileMemberCounts(ctx, repair)
	if err != nil {
		log.Fatalf("检查 member_count 失败: %v", err)
	}

	fmt.Printf("发现 %d 个计数不一致的群组 (repair=%v):\n", len(drifts), repair)
	fmt.Println("--------------------------------------")
	for i, d := range drifts {
		fmt.Printf("#%d 群组: %s, 缓存: %d, 实际: %d\n", i+1, d.GroupID, d.Cached, d.Actual)
	}
}

func checkSymmetry(ctx context.Context, friends services.FriendshipService) {
	violations, err := friends.CheckSymmetry(ctx)
	if err != nil {
		log.Fatalf("检查好友关系失败: %v", err)
	}

	fmt.Printf("发现 %d 条单向好友边:\n", len(violations))
	for _, v := range violations {
		fmt.Printf("  %s -> %s\n", v.UserID, v.OtherID)
	}
}

func showGroup(ctx context.Context, groups services.GroupMembershipService, groupID string) {
	details, err := groups.GetGroupDetails(ctx, groupID, "")
	if err != nil {
		log.Fatalf("查找群组失败: %v", err)
	}

	g := details.Group
	fmt.Printf("群组 %s 信息:\n", g.ID)
	fmt.Println("--------------------------------------")
	fmt.Printf("名称: %s\n", g.Name)
	fmt.Printf("描述: %s\n", g.Description)
	fmt.Printf("创建者: %s\n", g.CreatedBy)
	fmt.Printf("创建时间: %s\n", g.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("是否公开: %v, 是否活跃: %v\n", g.IsPublic, g.IsActive)
	fmt.Printf("成员数 (member_count): %d, 成员边: %d\n", g.MemberCount, len(details.Members))
	for i, m := range details.Members {
		fmt.Printf("#%d 用户: %s (%s), 角色: %s, 加入时间: %s\n",
			i+1, m.User.ID, m.User.Name, m.Role, m.JoinedAt.Format("2006-01-02 15:04:05"))
	}
}
